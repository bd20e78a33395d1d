// Package analyzer defines the contract every email classifier implements.
//
// An Analyzer receives sanitized email text and either produces exactly one
// Result or reports absence ("no verdict"). Absence is signalled by returning
// a nil *Result with a nil error. A non-nil error or a panic is a per-call
// failure; the orchestrator contains it, so callers of the orchestrator only
// ever observe results.
//
// # Decisions
//
// Every analyzer maps its native label space onto the closed Decision set
// before returning:
//
//   - safe
//   - spam
//   - phishing
//   - unknown
//
// There is no "error" decision. A failed analyzer is invisible in the output.
//
// # Availability
//
// Analyzers backed by heavyweight resources (a model server, a remote API)
// perform their handshake in the constructor. A constructor that cannot reach
// its backend returns an *UnavailableError and the analyzer is never built.
// Analyzers that can lose their backend after construction additionally
// implement Gate, which the orchestrator consults once at registration time.
//
// # Usage
//
//	type keywordAnalyzer struct{}
//
//	func (keywordAnalyzer) Name() string            { return "keyword" }
//	func (keywordAnalyzer) Source() analyzer.Source { return analyzer.SourceCustom }
//	func (keywordAnalyzer) Analyze(ctx context.Context, text string) (*analyzer.Result, error) {
//		if !strings.Contains(text, "lottery") {
//			return nil, nil // no verdict
//		}
//		return &analyzer.Result{
//			Decision:   analyzer.DecisionSpam,
//			Confidence: 0.7,
//		}, nil
//	}
package analyzer
