// Package telemetry groups mailguard's observability packages.
//
//   - logging: slog construction with context fields and PII redaction
//   - metrics: Prometheus collector for scans, analyzers and HTTP
//   - tracing: OpenTelemetry setup, span attributes and W3C propagation
//   - health: liveness, readiness and version endpoints
//
// Library packages depend only on the narrow interfaces they need
// (orchestrator.Recorder, scan.Recorder, trace.Tracer, *slog.Logger); the
// command layer constructs the concrete implementations from
// config.TelemetryConfig and wires them together.
package telemetry
