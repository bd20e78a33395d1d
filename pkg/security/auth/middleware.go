package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/mailguard/pkg/config"
	"mercator-hq/mailguard/pkg/telemetry/logging"
)

// Source types.
const (
	SourceHeader = "header"
	SourceQuery  = "query"
)

// DefaultSources reads "Authorization: Bearer <key>" and then "X-API-Key".
var DefaultSources = []config.APIKeySource{
	{Type: SourceHeader, Name: "Authorization", Scheme: "Bearer"},
	{Type: SourceHeader, Name: "X-API-Key"},
}

// ErrorFunc writes the response for a rejected request.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// APIKeyMiddleware authenticates requests by API key.
type APIKeyMiddleware struct {
	validator *APIKeyValidator
	sources   []config.APIKeySource
	onError   ErrorFunc
	logger    *slog.Logger
}

// MiddlewareOption configures an APIKeyMiddleware.
type MiddlewareOption func(*APIKeyMiddleware)

// WithErrorFunc sets how rejections are written. The default writes a plain
// 401.
func WithErrorFunc(fn ErrorFunc) MiddlewareOption {
	return func(m *APIKeyMiddleware) { m.onError = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(m *APIKeyMiddleware) { m.logger = logger }
}

// NewAPIKeyMiddleware creates the middleware. Empty sources use
// DefaultSources.
func NewAPIKeyMiddleware(validator *APIKeyValidator, sources []config.APIKeySource, opts ...MiddlewareOption) *APIKeyMiddleware {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	m := &APIKeyMiddleware{
		validator: validator,
		sources:   sources,
		onError: func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle wraps next with authentication. Authenticated requests carry the
// key info and the key's user ID in their context.
func (m *APIKeyMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := m.extractAPIKey(r)
		if !ok {
			m.logger.WarnContext(r.Context(), "missing API key",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			m.onError(w, r, ErrMissingKey)
			return
		}

		info, err := m.validator.Validate(key)
		if err != nil {
			m.logger.WarnContext(r.Context(), "API key rejected",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			m.onError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyInfoKey, info)
		ctx = logging.WithUserID(ctx, info.UserID)
		m.logger.DebugContext(ctx, "API key authenticated", "key", info.Prefix)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *APIKeyMiddleware) extractAPIKey(r *http.Request) (string, bool) {
	for _, source := range m.sources {
		var value string
		switch source.Type {
		case SourceHeader:
			value = strings.TrimSpace(r.Header.Get(source.Name))
			if value != "" && source.Scheme != "" {
				scheme, rest, found := strings.Cut(value, " ")
				if !found || !strings.EqualFold(scheme, source.Scheme) {
					continue
				}
				value = strings.TrimSpace(rest)
			}
		case SourceQuery:
			value = r.URL.Query().Get(source.Name)
		}
		if value != "" {
			return value, true
		}
	}
	return "", false
}

type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const apiKeyInfoKey contextKey = "api_key_info"

// GetAPIKeyInfo returns the authenticated key info from ctx.
func GetAPIKeyInfo(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyInfoKey).(*APIKeyInfo)
	return info, ok
}
