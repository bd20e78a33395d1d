package orchestrator

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Recorder receives per-call telemetry. metrics.Collector implements it.
type Recorder interface {
	RecordAnalyzerCall(analyzer, outcome string, duration time.Duration)
	RecordDecision(analyzer, decision string)
	SetRegisteredAnalyzers(n int)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for containment diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithTracer sets the tracer used for run and analyzer spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithParallel runs the analyzers of one scan concurrently. Result order is
// still registration order.
func WithParallel(parallel bool) Option {
	return func(o *Orchestrator) {
		o.parallel = parallel
	}
}

// WithAnalyzerTimeout bounds each analyzer call. Zero disables the bound.
func WithAnalyzerTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}
