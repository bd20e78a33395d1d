// Package tracing configures OpenTelemetry tracing for mailguard.
//
// When tracing is disabled, New returns a Tracer backed by the noop
// provider and nothing is exported. When enabled, spans are batched to an
// OTLP gRPC collector and sampled by the configured strategy (always, never
// or ratio, each wrapped in ParentBased). W3C Trace Context and Baggage are
// installed as the global propagator.
//
// Spans produced by mailguard:
//
//   - http.request: one per API request (server middleware)
//   - scan: one per scan, with mailguard.user_id and mailguard.text_length
//   - orchestrator.run_all: with mailguard.analyzers and mailguard.results
//   - analyzer.analyze: one per analyzer call, with the mailguard.analyzer.*
//     attributes
//
// Outgoing backend calls made through pkg/transport carry the traceparent
// header (Inject).
package tracing
