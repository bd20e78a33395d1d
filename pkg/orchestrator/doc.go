// Package orchestrator owns the analyzer registry and drives one
// classification pass per scan.
//
// RunAll invokes every registered analyzer exactly once and returns the
// results that were produced. It never returns an error: an analyzer that
// returns an error, panics, times out or emits a malformed result is logged,
// counted and left out of that call's results. An empty slice is a valid
// outcome and means no analyzer reached a verdict.
//
// The orchestrator performs no voting or aggregation. Combining confidence
// values from different backends is left to the caller.
//
// # Registration
//
// Register admits an analyzer only when its backend is available (see
// analyzer.Gate). Registration and deregistration swap a copy-on-write
// snapshot, so they are safe while scans are running; each RunAll works on
// the snapshot current at its start.
//
// # Usage
//
//	orch := orchestrator.New(
//		orchestrator.WithLogger(logger),
//		orchestrator.WithParallel(true),
//		orchestrator.WithAnalyzerTimeout(5*time.Second),
//	)
//	orch.Register(ruleAnalyzer)
//
//	results := orch.RunAll(ctx, text)
package orchestrator
