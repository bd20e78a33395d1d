/*
Package auth provides API key authentication for the mailguard HTTP API.

Keys are configured under security.authentication.keys, each owned by a
user ID. The user ID of the presented key owns the scan history written by
that request, so history is always scoped to the authenticated caller.

	validator, err := auth.NewAPIKeyValidator(cfg.Security.Authentication.Keys)
	if err != nil {
		return err
	}
	mw := auth.NewAPIKeyMiddleware(validator, cfg.Security.Authentication.Sources)
	r.Group(func(r chi.Router) {
		r.Use(mw.Handle)
		r.Post("/v1/scan", h.scan)
	})

Keys are read from the configured sources in order, for example the
Authorization header with the Bearer scheme, then X-API-Key. The validator
stores SHA-256 digests only, so configured keys are not kept in memory in
clear after construction.

Handlers read the authenticated key with GetAPIKeyInfo.
*/
package auth
