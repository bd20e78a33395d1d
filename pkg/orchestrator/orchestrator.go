package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/telemetry/tracing"
)

// Call outcomes reported to the Recorder.
const (
	OutcomeResult  = "result"
	OutcomeAbsent  = "absent"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
	OutcomeTimeout = "timeout"
	OutcomeInvalid = "invalid"
)

// StatusLoaded is the status reported for every registered analyzer.
const StatusLoaded = "loaded"

// ErrNoAnalyzers is returned by Ready when the registry is empty.
var ErrNoAnalyzers = errors.New("no analyzers registered")

// Info describes one registered analyzer.
type Info struct {
	Name         string          `json:"name"`
	Source       analyzer.Source `json:"source"`
	Status       string          `json:"status"`
	RegisteredAt time.Time       `json:"registered_at"`
}

// Summary is the introspection view of the registry.
type Summary struct {
	Models  []Info `json:"models"`
	Total   int    `json:"total_models"`
	Primary string `json:"primary_model,omitempty"`
}

type registration struct {
	analyzer     analyzer.Analyzer
	registeredAt time.Time
}

// Orchestrator fans a scan out to every registered analyzer.
type Orchestrator struct {
	mu      sync.RWMutex
	entries []registration // replaced, never mutated in place

	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer
	parallel bool
	timeout  time.Duration
}

// New creates an empty orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer("mailguard/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Register adds a to the registry when its backend is available. It reports
// whether the analyzer was added. Duplicate registrations are not detected.
func (o *Orchestrator) Register(a analyzer.Analyzer) bool {
	if a == nil {
		return false
	}

	if gate, ok := a.(analyzer.Gate); ok {
		if err := gate.Available(); err != nil {
			o.logger.Warn("analyzer unavailable, not registered",
				"analyzer", a.Name(),
				"source", a.Source(),
				"error", err,
			)
			return false
		}
	}

	o.mu.Lock()
	next := make([]registration, len(o.entries), len(o.entries)+1)
	copy(next, o.entries)
	next = append(next, registration{analyzer: a, registeredAt: time.Now()})
	o.entries = next
	n := len(next)
	o.mu.Unlock()

	o.logger.Info("analyzer registered",
		"analyzer", a.Name(),
		"source", a.Source(),
		"registered", n,
	)
	if o.recorder != nil {
		o.recorder.SetRegisteredAnalyzers(n)
	}
	return true
}

// Deregister removes every registration named name. It reports whether any
// registration was removed.
func (o *Orchestrator) Deregister(name string) bool {
	o.mu.Lock()
	next := make([]registration, 0, len(o.entries))
	for _, e := range o.entries {
		if e.analyzer.Name() != name {
			next = append(next, e)
		}
	}
	removed := len(next) != len(o.entries)
	if removed {
		o.entries = next
	}
	n := len(o.entries)
	o.mu.Unlock()

	if removed {
		o.logger.Info("analyzer deregistered", "analyzer", name, "registered", n)
		if o.recorder != nil {
			o.recorder.SetRegisteredAnalyzers(n)
		}
	}
	return removed
}

// Replace removes every registration named in old and registers add, in one
// swap: a concurrent RunAll sees either the previous set or the new one.
// Analyzers failing their Gate are skipped. It returns the names of the
// analyzers added.
func (o *Orchestrator) Replace(old []string, add []analyzer.Analyzer) []string {
	accepted := make([]analyzer.Analyzer, 0, len(add))
	for _, a := range add {
		if a == nil {
			continue
		}
		if gate, ok := a.(analyzer.Gate); ok {
			if err := gate.Available(); err != nil {
				o.logger.Warn("analyzer unavailable, not registered",
					"analyzer", a.Name(),
					"source", a.Source(),
					"error", err,
				)
				continue
			}
		}
		accepted = append(accepted, a)
	}

	drop := make(map[string]struct{}, len(old))
	for _, name := range old {
		drop[name] = struct{}{}
	}

	now := time.Now()
	o.mu.Lock()
	next := make([]registration, 0, len(o.entries)+len(accepted))
	for _, e := range o.entries {
		if _, ok := drop[e.analyzer.Name()]; !ok {
			next = append(next, e)
		}
	}
	removed := len(o.entries) - len(next)
	for _, a := range accepted {
		next = append(next, registration{analyzer: a, registeredAt: now})
	}
	o.entries = next
	n := len(next)
	o.mu.Unlock()

	names := make([]string, len(accepted))
	for i, a := range accepted {
		names[i] = a.Name()
	}
	o.logger.Info("analyzers replaced",
		"removed", removed,
		"added", names,
		"registered", n,
	)
	if o.recorder != nil {
		o.recorder.SetRegisteredAnalyzers(n)
	}
	return names
}

// Len returns the number of registered analyzers.
func (o *Orchestrator) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.entries)
}

// Ready returns ErrNoAnalyzers when nothing is registered.
func (o *Orchestrator) Ready() error {
	if o.Len() == 0 {
		return ErrNoAnalyzers
	}
	return nil
}

// Analyzers lists registered analyzers in registration order.
func (o *Orchestrator) Analyzers() []Info {
	snapshot := o.snapshot()
	infos := make([]Info, len(snapshot))
	for i, e := range snapshot {
		infos[i] = Info{
			Name:         e.analyzer.Name(),
			Source:       e.analyzer.Source(),
			Status:       StatusLoaded,
			RegisteredAt: e.registeredAt,
		}
	}
	return infos
}

// Summary returns the registry introspection view. The primary analyzer is
// the first one registered.
func (o *Orchestrator) Summary() Summary {
	infos := o.Analyzers()
	s := Summary{Models: infos, Total: len(infos)}
	if len(infos) > 0 {
		s.Primary = infos[0].Name
	}
	return s
}

func (o *Orchestrator) snapshot() []registration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.entries
}

// RunAll invokes every registered analyzer once and returns the results that
// were produced, in registration order. The returned slice is never nil.
func (o *Orchestrator) RunAll(ctx context.Context, text string) []analyzer.Result {
	snapshot := o.snapshot()

	ctx, span := o.tracer.Start(ctx, "orchestrator.run_all",
		trace.WithAttributes(tracing.AttrAnalyzers.Int(len(snapshot))),
	)
	defer span.End()

	slots := make([]*analyzer.Result, len(snapshot))

	if o.parallel && len(snapshot) > 1 {
		var wg sync.WaitGroup
		for i, e := range snapshot {
			wg.Add(1)
			go func(i int, a analyzer.Analyzer) {
				defer wg.Done()
				slots[i] = o.invoke(ctx, a, text)
			}(i, e.analyzer)
		}
		wg.Wait()
	} else {
		for i, e := range snapshot {
			slots[i] = o.invoke(ctx, e.analyzer, text)
		}
	}

	results := make([]analyzer.Result, 0, len(snapshot))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	span.SetAttributes(tracing.AttrResults.Int(len(results)))
	return results
}

// invoke runs one analyzer with containment, telemetry and result validation.
func (o *Orchestrator) invoke(ctx context.Context, a analyzer.Analyzer, text string) *analyzer.Result {
	name := a.Name()

	ctx, span := o.tracer.Start(ctx, "analyzer.analyze",
		trace.WithAttributes(
			tracing.AttrAnalyzerName.String(name),
			tracing.AttrAnalyzerSource.String(string(a.Source())),
		),
	)
	defer span.End()

	start := time.Now()
	res, outcome, err := o.call(ctx, a, text)
	duration := time.Since(start)

	if outcome == OutcomeResult {
		res = normalize(a, res)
		if verr := res.Validate(); verr != nil {
			outcome, err, res = OutcomeInvalid, verr, nil
		}
	}

	span.SetAttributes(tracing.AttrAnalyzerOutcome.String(outcome))
	switch outcome {
	case OutcomeResult:
		span.SetAttributes(
			tracing.AttrAnalyzerDecision.String(string(res.Decision)),
			tracing.AttrAnalyzerConfidence.Float64(res.Confidence),
		)
		span.SetStatus(codes.Ok, "")
	case OutcomeAbsent:
		o.logger.DebugContext(ctx, "analyzer returned no verdict", "analyzer", name)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.WarnContext(ctx, "analyzer call failed",
			"analyzer", name,
			"outcome", outcome,
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
	}

	if o.recorder != nil {
		o.recorder.RecordAnalyzerCall(name, outcome, duration)
		if res != nil {
			o.recorder.RecordDecision(name, string(res.Decision))
		}
	}

	return res
}

// call runs Analyze, converting panics and timeouts into outcomes.
func (o *Orchestrator) call(ctx context.Context, a analyzer.Analyzer, text string) (*analyzer.Result, string, error) {
	if o.timeout <= 0 {
		return safeAnalyze(ctx, a, text)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type outcome struct {
		res  *analyzer.Result
		kind string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		res, kind, err := safeAnalyze(ctx, a, text)
		done <- outcome{res, kind, err}
	}()

	select {
	case out := <-done:
		return out.res, out.kind, out.err
	case <-ctx.Done():
		return nil, OutcomeTimeout, fmt.Errorf("analyzer %q exceeded %s: %w", a.Name(), o.timeout, ctx.Err())
	}
}

func safeAnalyze(ctx context.Context, a analyzer.Analyzer, text string) (res *analyzer.Result, kind string, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			kind = OutcomePanic
			err = fmt.Errorf("panic in analyzer %q: %v\n%s", a.Name(), r, debug.Stack())
		}
	}()

	res, err = a.Analyze(ctx, text)
	switch {
	case err != nil:
		return nil, OutcomeError, err
	case res == nil:
		return nil, OutcomeAbsent, nil
	default:
		return res, OutcomeResult, nil
	}
}

// normalize returns a copy of r with provenance fields filled from a.
func normalize(a analyzer.Analyzer, r *analyzer.Result) *analyzer.Result {
	out := *r
	if out.Name == "" {
		out.Name = a.Name()
	}
	if out.Source == "" {
		out.Source = a.Source()
	}
	return &out
}
