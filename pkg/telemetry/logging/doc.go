// Package logging builds the service's *slog.Logger.
//
// The handler returned by New wraps a JSON or text slog handler and adds two
// things to every record:
//
//   - request_id and user_id taken from the context (see WithRequestID and
//     WithUserID), when the record is logged with a *Context method
//   - PII redaction of attribute values, when enabled: API keys, bearer
//     tokens and email addresses are masked, and attributes whose key names
//     a secret (api_key, token, password, ...) are masked regardless of value
//
// Library packages accept a *slog.Logger and never import this package; the
// command layer builds the logger once and installs it with slog.SetDefault.
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "scan completed", "api_key", key) // key is masked
package logging
