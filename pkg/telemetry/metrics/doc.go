// Package metrics exposes mailguard's Prometheus metrics.
//
// A Collector owns a private registry and implements the recorder
// interfaces of the orchestrator and the scan service, so the command layer
// wires one Collector into both:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	orch := orchestrator.New(orchestrator.WithRecorder(collector))
//	svc := scan.New(orch, cfg.Scan, scan.WithRecorder(collector))
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Metrics
//
// All names carry the configured namespace (default "mailguard"):
//
//   - scans_total{status}: scans by outcome (ok, no_verdict, invalid)
//   - scan_duration_seconds: end-to-end scan latency
//   - analyzer_calls_total{analyzer,outcome}: result, absent, error,
//     panic, timeout or invalid
//   - analyzer_duration_seconds{analyzer}
//   - decisions_total{analyzer,decision}
//   - registered_analyzers
//   - history_writes_total{status}
//   - http_requests_total{method,path,status}
//   - http_request_duration_seconds{method,path}
//
// Analyzer names come from configuration and rule packs, so label values
// are bounded by a CardinalityLimiter; names past the limit are folded into
// "other".
//
// Every method is safe to call on a nil *Collector and is a no-op when
// metrics are disabled.
package metrics
