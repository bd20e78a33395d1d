// Package health serves mailguard's liveness, readiness and version
// endpoints.
//
// Liveness only reports that the process is up. Readiness runs every
// registered check concurrently, each bounded by the checker's timeout,
// and answers 503 when any of them fails. The command layer registers:
//
//   - "analyzers": fails while no analyzer is registered (AnalyzersCheck)
//   - "history": pings the history store when history is enabled
//     (PingCheck)
//
// Usage:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("analyzers", health.AnalyzersCheck(orch))
//	checker.RegisterCheck("history", health.PingCheck(store))
//
//	r.Get("/health", checker.LivenessHandler())
//	r.Get("/ready", checker.ReadinessHandler())
//	r.Get("/version", health.VersionHandler(info))
package health
