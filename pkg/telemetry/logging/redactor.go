package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks API keys, bearer tokens and email addresses in log
// attributes. It is safe for concurrent use.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	regex   *regexp.Regexp
	replace func(string) string
}

var (
	apiKeyPattern = regexp.MustCompile(`\b(?:sk|pk|mg)-[A-Za-z0-9_-]{8,}`)
	bearerPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	sensitiveKeys = []string{
		"password", "passwd", "secret", "token",
		"api_key", "apikey", "authorization", "passphrase", "private_key",
	}
)

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: []redactPattern{
		{regex: bearerPattern, replace: func(string) string { return "Bearer ***" }},
		{regex: apiKeyPattern, replace: RedactAPIKey},
		{regex: emailPattern, replace: RedactEmail},
	}}
}

// RedactString masks every known PII pattern in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllStringFunc(value, p.replace)
	}
	return value
}

// RedactAttr returns a with its value masked. Attributes whose key names a
// secret are masked whole; strings and errors are pattern-redacted; groups
// are walked.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, RedactAPIKey(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, "***")
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// IsSensitiveKey reports whether an attribute key names a secret.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactEmail keeps the first character of the local part and the domain.
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	if local == "" {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}

// RedactAPIKey keeps the first four characters of a key.
func RedactAPIKey(key string) string {
	if len(key) <= 4 {
		return "***"
	}
	return key[:4] + "***"
}
