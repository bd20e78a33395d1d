package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/analyzer/rules"
)

// stubAnalyzer is a configurable test analyzer.
type stubAnalyzer struct {
	name    string
	source  analyzer.Source
	analyze func(ctx context.Context, text string) (*analyzer.Result, error)
}

func (s *stubAnalyzer) Name() string            { return s.name }
func (s *stubAnalyzer) Source() analyzer.Source { return s.source }
func (s *stubAnalyzer) Analyze(ctx context.Context, text string) (*analyzer.Result, error) {
	return s.analyze(ctx, text)
}

// gatedAnalyzer reports a fixed availability.
type gatedAnalyzer struct {
	stubAnalyzer
	err error
}

func (g *gatedAnalyzer) Available() error { return g.err }

func fixed(name string, d analyzer.Decision, c float64) *stubAnalyzer {
	return &stubAnalyzer{
		name:   name,
		source: analyzer.SourceCustom,
		analyze: func(context.Context, string) (*analyzer.Result, error) {
			return &analyzer.Result{Name: name, Source: analyzer.SourceCustom, Decision: d, Confidence: c}, nil
		},
	}
}

func failing(name string) *stubAnalyzer {
	return &stubAnalyzer{
		name:   name,
		source: analyzer.SourceModel,
		analyze: func(context.Context, string) (*analyzer.Result, error) {
			return nil, errors.New("backend exploded")
		},
	}
}

func panicking(name string) *stubAnalyzer {
	return &stubAnalyzer{
		name:   name,
		source: analyzer.SourceModel,
		analyze: func(context.Context, string) (*analyzer.Result, error) {
			panic("unexpected label shape")
		},
	}
}

func absent(name string) *stubAnalyzer {
	return &stubAnalyzer{
		name:   name,
		source: analyzer.SourceURLService,
		analyze: func(context.Context, string) (*analyzer.Result, error) {
			return nil, nil
		},
	}
}

func ruleAnalyzer(t testing.TB) *rules.Analyzer {
	t.Helper()
	a, err := rules.New(nil)
	if err != nil {
		t.Fatalf("rules.New() error = %v", err)
	}
	return a
}

// fakeRecorder captures Recorder calls.
type fakeRecorder struct {
	mu         sync.Mutex
	outcomes   map[string]string
	decisions  map[string]string
	registered int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{outcomes: map[string]string{}, decisions: map[string]string{}}
}

func (f *fakeRecorder) RecordAnalyzerCall(name, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[name] = outcome
}

func (f *fakeRecorder) RecordDecision(name, decision string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions[name] = decision
}

func (f *fakeRecorder) SetRegisteredAnalyzers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = n
}

func TestRunAll_NoAnalyzers(t *testing.T) {
	o := New()

	results := o.RunAll(context.Background(), "anything")
	if results == nil {
		t.Fatal("RunAll() returned nil, want empty slice")
	}
	if len(results) != 0 {
		t.Errorf("RunAll() returned %d results, want 0", len(results))
	}
	if err := o.Ready(); !errors.Is(err, ErrNoAnalyzers) {
		t.Errorf("Ready() = %v, want ErrNoAnalyzers", err)
	}
}

func TestRunAll_RuleAnalyzerAlwaysAnswers(t *testing.T) {
	o := New()
	o.Register(ruleAnalyzer(t))

	for _, text := range []string{"", "hello", "URGENT bank password http://x.tk/", strings.Repeat("z", 10000)} {
		results := o.RunAll(context.Background(), text)
		if len(results) != 1 {
			t.Fatalf("RunAll(%q) returned %d results, want 1", text, len(results))
		}
	}
}

func TestRunAll_Scenario(t *testing.T) {
	o := New()
	o.Register(ruleAnalyzer(t))

	results := o.RunAll(context.Background(), "URGENT: verify your bank account password now, click http://x.tk/verify")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Decision != analyzer.DecisionPhishing || results[0].Confidence != 0.95 {
		t.Errorf("got %s/%v, want phishing/0.95", results[0].Decision, results[0].Confidence)
	}
}

func TestRunAll_ContainsFailures(t *testing.T) {
	rec := newFakeRecorder()
	o := New(WithRecorder(rec))

	o.Register(failing("broken_model"))
	o.Register(fixed("model_a", analyzer.DecisionSpam, 0.7))
	o.Register(panicking("crashy_model"))
	o.Register(absent("url_check"))
	o.Register(fixed("model_b", analyzer.DecisionSafe, 0.9))

	results := o.RunAll(context.Background(), "some email")

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Name != "model_a" || results[1].Name != "model_b" {
		t.Errorf("results out of registration order: %s, %s", results[0].Name, results[1].Name)
	}

	want := map[string]string{
		"broken_model": OutcomeError,
		"model_a":      OutcomeResult,
		"crashy_model": OutcomePanic,
		"url_check":    OutcomeAbsent,
		"model_b":      OutcomeResult,
	}
	for name, outcome := range want {
		if rec.outcomes[name] != outcome {
			t.Errorf("outcome[%s] = %q, want %q", name, rec.outcomes[name], outcome)
		}
	}
	if rec.decisions["model_a"] != "spam" {
		t.Errorf("decision[model_a] = %q, want spam", rec.decisions["model_a"])
	}
	if rec.registered != 5 {
		t.Errorf("registered = %d, want 5", rec.registered)
	}
}

func TestRunAll_FailingAnalyzerAcrossFuzzedInputs(t *testing.T) {
	rule := ruleAnalyzer(t)

	for _, parallel := range []bool{false, true} {
		o := New(WithParallel(parallel))
		o.Register(failing("always_fails"))
		o.Register(rule)
		o.Register(panicking("always_panics"))

		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 1000; i++ {
			text := randomText(rng)

			results := o.RunAll(context.Background(), text)
			if len(results) != 1 {
				t.Fatalf("parallel=%v input %d: got %d results, want 1", parallel, i, len(results))
			}

			direct, _ := rule.Analyze(context.Background(), text)
			if results[0] != *direct {
				t.Fatalf("parallel=%v input %d: result %+v differs from direct %+v", parallel, i, results[0], *direct)
			}
		}
	}
}

func TestRunAll_DropsInvalidResults(t *testing.T) {
	rec := newFakeRecorder()
	o := New(WithRecorder(rec))

	o.Register(fixed("overconfident", analyzer.DecisionPhishing, 1.5))
	o.Register(fixed("info_only", analyzer.Decision("info"), 0.9))
	o.Register(fixed("fine", analyzer.DecisionUnknown, 0))

	results := o.RunAll(context.Background(), "text")
	if len(results) != 1 || results[0].Name != "fine" {
		t.Fatalf("got %+v, want only the valid result", results)
	}
	if rec.outcomes["overconfident"] != OutcomeInvalid || rec.outcomes["info_only"] != OutcomeInvalid {
		t.Errorf("invalid outcomes not recorded: %v", rec.outcomes)
	}
}

func TestRunAll_FillsProvenance(t *testing.T) {
	o := New()
	o.Register(&stubAnalyzer{
		name:   "bare",
		source: analyzer.SourceLLM,
		analyze: func(context.Context, string) (*analyzer.Result, error) {
			return &analyzer.Result{Decision: analyzer.DecisionSpam, Confidence: 0.5}, nil
		},
	})

	results := o.RunAll(context.Background(), "text")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Name != "bare" || results[0].Source != analyzer.SourceLLM {
		t.Errorf("provenance = %s/%s, want bare/llm", results[0].Name, results[0].Source)
	}
}

func TestRunAll_ParallelKeepsOrder(t *testing.T) {
	o := New(WithParallel(true))

	for i, delay := range []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 0} {
		name := []string{"slow", "medium", "fast"}[i]
		d := delay
		o.Register(&stubAnalyzer{
			name:   name,
			source: analyzer.SourceModel,
			analyze: func(context.Context, string) (*analyzer.Result, error) {
				time.Sleep(d)
				return &analyzer.Result{Decision: analyzer.DecisionSafe, Confidence: 0.5}, nil
			},
		})
	}

	results := o.RunAll(context.Background(), "text")
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"slow", "medium", "fast"} {
		if results[i].Name != want {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Name, want)
		}
	}
}

func TestRunAll_Timeout(t *testing.T) {
	rec := newFakeRecorder()
	o := New(WithAnalyzerTimeout(20*time.Millisecond), WithRecorder(rec))

	o.Register(&stubAnalyzer{
		name:   "hung_service",
		source: analyzer.SourceLLM,
		analyze: func(ctx context.Context, _ string) (*analyzer.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	o.Register(fixed("quick", analyzer.DecisionSafe, 0.8))

	start := time.Now()
	results := o.RunAll(context.Background(), "text")
	if time.Since(start) > time.Second {
		t.Errorf("RunAll took %v with a 20ms analyzer timeout", time.Since(start))
	}
	if len(results) != 1 || results[0].Name != "quick" {
		t.Fatalf("got %+v, want only quick", results)
	}
	if rec.outcomes["hung_service"] != OutcomeTimeout {
		t.Errorf("outcome = %q, want %q", rec.outcomes["hung_service"], OutcomeTimeout)
	}
}

func TestRegister_Gating(t *testing.T) {
	o := New()

	if o.Register(nil) {
		t.Error("Register(nil) = true, want false")
	}

	down := &gatedAnalyzer{stubAnalyzer: *fixed("distilbert", analyzer.DecisionSafe, 1), err: errors.New("weights missing")}
	if o.Register(down) {
		t.Error("Register() admitted an unavailable analyzer")
	}

	up := &gatedAnalyzer{stubAnalyzer: *fixed("distilbert", analyzer.DecisionSafe, 1)}
	if !o.Register(up) {
		t.Error("Register() rejected an available analyzer")
	}

	if o.Len() != 1 {
		t.Errorf("Len() = %d, want 1", o.Len())
	}
}

func TestDeregister(t *testing.T) {
	rec := newFakeRecorder()
	o := New(WithRecorder(rec))

	o.Register(fixed("a", analyzer.DecisionSafe, 0.5))
	o.Register(fixed("b", analyzer.DecisionSafe, 0.5))
	o.Register(fixed("a", analyzer.DecisionSpam, 0.5))

	if !o.Deregister("a") {
		t.Fatal("Deregister(a) = false, want true")
	}
	if o.Deregister("a") {
		t.Error("second Deregister(a) = true, want false")
	}
	if o.Deregister("missing") {
		t.Error("Deregister(missing) = true, want false")
	}

	infos := o.Analyzers()
	if len(infos) != 1 || infos[0].Name != "b" {
		t.Errorf("Analyzers() = %+v, want only b", infos)
	}
	if rec.registered != 1 {
		t.Errorf("registered gauge = %d, want 1", rec.registered)
	}
}

func TestReplace(t *testing.T) {
	rec := newFakeRecorder()
	o := New(WithRecorder(rec))
	o.Register(fixed("base", analyzer.DecisionSafe, 0.5))
	o.Register(fixed("pack_a", analyzer.DecisionSafe, 0.5))

	added := o.Replace([]string{"pack_a"}, []analyzer.Analyzer{
		fixed("pack_b", analyzer.DecisionSpam, 0.5),
		&gatedAnalyzer{stubAnalyzer: *fixed("pack_c", analyzer.DecisionSpam, 0.5), err: errors.New("down")},
		nil,
	})
	if len(added) != 1 || added[0] != "pack_b" {
		t.Errorf("Replace() = %v, want [pack_b]", added)
	}

	infos := o.Analyzers()
	if len(infos) != 2 || infos[0].Name != "base" || infos[1].Name != "pack_b" {
		t.Errorf("Analyzers() = %+v, want base then pack_b", infos)
	}
	if rec.registered != 2 {
		t.Errorf("registered gauge = %d, want 2", rec.registered)
	}

	if added := o.Replace([]string{"pack_b"}, nil); len(added) != 0 || o.Len() != 1 {
		t.Errorf("Replace(remove only) = %v, Len() = %d", added, o.Len())
	}
}

func TestReplace_ConsistentSnapshot(t *testing.T) {
	o := New()
	o.Register(fixed("base", analyzer.DecisionSafe, 0.5))
	first := []analyzer.Analyzer{fixed("a1", analyzer.DecisionSafe, 0.5), fixed("a2", analyzer.DecisionSafe, 0.5)}
	second := []analyzer.Analyzer{fixed("b1", analyzer.DecisionSpam, 0.5), fixed("b2", analyzer.DecisionSpam, 0.5)}
	o.Replace(nil, first)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			o.Replace([]string{"a1", "a2"}, second)
			o.Replace([]string{"b1", "b2"}, first)
		}
	}()

	for i := 0; i < 500; i++ {
		infos := o.Analyzers()
		if len(infos) != 3 {
			t.Fatalf("snapshot has %d analyzers, want 3: %+v", len(infos), infos)
		}
		if infos[1].Name[0] != infos[2].Name[0] {
			t.Fatalf("snapshot mixes old and new sets: %s, %s", infos[1].Name, infos[2].Name)
		}
	}

	close(stop)
	wg.Wait()
}

func TestSummary(t *testing.T) {
	o := New()
	if s := o.Summary(); s.Total != 0 || s.Primary != "" || len(s.Models) != 0 {
		t.Errorf("empty Summary() = %+v", s)
	}

	o.Register(ruleAnalyzer(t))
	o.Register(fixed("distilbert", analyzer.DecisionSafe, 0.5))

	s := o.Summary()
	if s.Total != 2 {
		t.Errorf("Total = %d, want 2", s.Total)
	}
	if s.Primary != rules.DefaultName {
		t.Errorf("Primary = %q, want %q", s.Primary, rules.DefaultName)
	}
	for _, m := range s.Models {
		if m.Status != StatusLoaded {
			t.Errorf("model %s status = %q, want %q", m.Name, m.Status, StatusLoaded)
		}
	}
	if s.Models[0].Source != analyzer.SourceRuleBased {
		t.Errorf("Models[0].Source = %q, want rule_based", s.Models[0].Source)
	}
}

func TestRunAll_ConcurrentRegistration(t *testing.T) {
	o := New(WithParallel(true))
	o.Register(ruleAnalyzer(t))

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			o.Register(fixed("transient", analyzer.DecisionSafe, 0.5))
			o.Deregister("transient")
		}
	}()

	for i := 0; i < 200; i++ {
		results := o.RunAll(context.Background(), "Please check the bank account.")
		if len(results) < 1 || len(results) > 2 {
			t.Errorf("got %d results, want 1 or 2", len(results))
		}
	}

	close(stop)
	wg.Wait()
}

func TestRunAll_Idempotent(t *testing.T) {
	o := New()
	o.Register(ruleAnalyzer(t))

	text := "Your payment is due. Wire money to the bank immediately."
	first := o.RunAll(context.Background(), text)
	second := o.RunAll(context.Background(), text)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func FuzzRunAll(f *testing.F) {
	f.Add("URGENT: verify your bank account password now, click http://x.tk/verify")
	f.Add("Hi team, attaching the Q3 report, let's sync Monday.")
	f.Add("")
	f.Add("\x00\xff\xfe")

	rule := ruleAnalyzer(f)
	o := New()
	o.Register(rule)
	o.Register(failing("always_fails"))
	o.Register(panicking("always_panics"))
	o.Register(absent("never_answers"))

	f.Fuzz(func(t *testing.T, text string) {
		results := o.RunAll(context.Background(), text)
		if len(results) > o.Len() {
			t.Fatalf("got %d results for %d analyzers", len(results), o.Len())
		}
		if len(results) != 1 {
			t.Fatalf("got %d results, want exactly the rule result", len(results))
		}
		for _, r := range results {
			if err := r.Validate(); err != nil {
				t.Fatalf("invalid result %+v: %v", r, err)
			}
		}
	})
}

// randomText builds inputs mixing keywords, URLs, unicode and raw bytes.
func randomText(rng *rand.Rand) string {
	fragments := []string{
		"urgent", "bank", "account", "password", "http://", ".tk", "https://evil.gq/x",
		"verify your identity", "ASAP", "€", "💸", "\x00", "\n", " ", "lorem", "ipsum",
		"act now", "credit card", "payment", "(((", ".*", "\\", "\xff",
	}

	var b strings.Builder
	n := rng.Intn(40)
	for i := 0; i < n; i++ {
		if rng.Intn(5) == 0 {
			b.WriteByte(byte(rng.Intn(256)))
			continue
		}
		b.WriteString(fragments[rng.Intn(len(fragments))])
	}
	return b.String()
}
