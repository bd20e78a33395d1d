// Package server is mailguard's HTTP API.
//
// Routes (chi):
//
//	POST /v1/scan      {"email_text": "..."} -> scan.Report
//	GET  /v1/history   ?limit=N -> {"history": [...]} for the caller
//	GET  /v1/models    registered analyzers
//	GET  /health       liveness
//	GET  /ready        readiness (503 when degraded)
//	GET  /version      build information
//	GET  /metrics      Prometheus exposition, when metrics are enabled
//
// Middleware, outermost first: real IP, recovery, request ID, trace
// propagation, structured logging and route metrics, CORS. The /v1 routes
// additionally get a request timeout, a body size limit and, when
// configured, API key authentication.
//
// The caller's user ID is the authenticated key's owner. Without
// authentication it is taken from the X-User-ID header, falling back to
// "anonymous".
//
// Errors are JSON:
//
//	{"error": {"message": "email text cannot be empty", "type": "invalid_request_error", "code": "invalid_email_text"}}
package server
