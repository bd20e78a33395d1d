package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasField reports whether a field error was recorded for field.
func (e *ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

var validDecisions = map[string]bool{"safe": true, "spam": true, "phishing": true, "unknown": true}

// Validate validates the entire configuration and returns a *ValidationError
// if any validation rules fail. All field errors are collected and returned
// together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateScan(&cfg.Scan)...)
	errs = append(errs, validateAnalyzers(&cfg.Analyzers)...)
	errs = append(errs, validateRulePacks(&cfg.RulePacks)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "request timeout must be positive"})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}

	return errs
}

func validateScan(cfg *ScanConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxTextLength <= 0 {
		errs = append(errs, FieldError{Field: "scan.max_text_length", Message: "max text length must be positive"})
	}
	if cfg.AnalyzerTimeout < 0 {
		errs = append(errs, FieldError{Field: "scan.analyzer_timeout", Message: "analyzer timeout must be non-negative"})
	}
	if cfg.HistoryLimit <= 0 {
		errs = append(errs, FieldError{Field: "scan.history_limit", Message: "history limit must be positive"})
	}
	if cfg.MaxHistoryLimit < cfg.HistoryLimit {
		errs = append(errs, FieldError{
			Field:   "scan.max_history_limit",
			Message: fmt.Sprintf("max history limit must be at least history_limit (%d)", cfg.HistoryLimit),
		})
	}

	return errs
}

func validateAnalyzers(cfg *AnalyzersConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validatePatterns("analyzers.rules.extra_patterns.urgency", cfg.Rules.ExtraPatterns.Urgency)...)
	errs = append(errs, validatePatterns("analyzers.rules.extra_patterns.financial", cfg.Rules.ExtraPatterns.Financial)...)
	errs = append(errs, validatePatterns("analyzers.rules.extra_patterns.personal_info", cfg.Rules.ExtraPatterns.PersonalInfo)...)
	errs = append(errs, validatePatterns("analyzers.rules.extra_patterns.suspicious_domain", cfg.Rules.ExtraPatterns.SuspiciousDomain)...)

	seen := map[string]bool{}
	for i, m := range cfg.Models {
		prefix := fmt.Sprintf("analyzers.models[%d]", i)

		if m.Name == "" {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: "model name is required"})
		} else if seen[m.Name] {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: fmt.Sprintf("duplicate model name %q", m.Name)})
		}
		seen[m.Name] = true

		if err := validateHTTPURL(m.BaseURL); err != "" {
			errs = append(errs, FieldError{Field: prefix + ".base_url", Message: err})
		}

		switch m.Labels {
		case "four_way", "binary":
		case "custom":
			if len(m.CustomLabels) == 0 {
				errs = append(errs, FieldError{Field: prefix + ".custom_labels", Message: "custom label set requires at least one label"})
			}
			for j, l := range m.CustomLabels {
				if l.Name == "" {
					errs = append(errs, FieldError{Field: fmt.Sprintf("%s.custom_labels[%d].name", prefix, j), Message: "label name is required"})
				}
				if !validDecisions[l.Decision] {
					errs = append(errs, FieldError{
						Field:   fmt.Sprintf("%s.custom_labels[%d].decision", prefix, j),
						Message: fmt.Sprintf("invalid decision %q (must be safe, spam, phishing or unknown)", l.Decision),
					})
				}
			}
		default:
			errs = append(errs, FieldError{
				Field:   prefix + ".labels",
				Message: fmt.Sprintf("invalid label set %q (must be four_way, binary or custom)", m.Labels),
			})
		}

		if m.Timeout < 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "timeout must be positive"})
		}
		if m.MaxRetries < 0 {
			errs = append(errs, FieldError{Field: prefix + ".max_retries", Message: "max retries must be non-negative"})
		}
	}

	if u := cfg.URLCheck; u.Enabled {
		if err := validateHTTPURL(u.BaseURL); err != "" {
			errs = append(errs, FieldError{Field: "analyzers.url_check.base_url", Message: err})
		}
		if u.Confidence <= 0 || u.Confidence > 1 {
			errs = append(errs, FieldError{Field: "analyzers.url_check.confidence", Message: "confidence must be in (0, 1]"})
		}
	}

	if l := cfg.LLM; l.Enabled {
		if l.Provider != "anthropic" && l.Provider != "openai" {
			errs = append(errs, FieldError{
				Field:   "analyzers.llm.provider",
				Message: fmt.Sprintf("invalid provider %q (must be anthropic or openai)", l.Provider),
			})
		}
		if l.Model == "" {
			errs = append(errs, FieldError{Field: "analyzers.llm.model", Message: "model is required when llm is enabled"})
		}
		if l.BaseURL != "" {
			if err := validateHTTPURL(l.BaseURL); err != "" {
				errs = append(errs, FieldError{Field: "analyzers.llm.base_url", Message: err})
			}
		}
		if l.MaxInputRunes <= 0 {
			errs = append(errs, FieldError{Field: "analyzers.llm.max_input_runes", Message: "max input runes must be positive"})
		}
	}

	return errs
}

func validatePatterns(field string, patterns []string) []FieldError {
	var errs []FieldError
	for i, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, FieldError{Field: fmt.Sprintf("%s[%d]", field, i), Message: fmt.Sprintf("invalid pattern: %v", err)})
		}
	}
	return errs
}

func validateHTTPURL(raw string) string {
	if raw == "" {
		return "base URL is required"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "URL must include a host"
	}
	return ""
}

func validateRulePacks(cfg *RulePacksConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	if cfg.Debounce < 0 {
		errs = append(errs, FieldError{Field: "rule_packs.debounce", Message: "debounce must be non-negative"})
	}

	g := cfg.Git
	if !g.Enabled {
		if cfg.Path == "" {
			errs = append(errs, FieldError{Field: "rule_packs.path", Message: "path is required"})
		}
		return errs
	}

	if g.Repository == "" {
		errs = append(errs, FieldError{Field: "rule_packs.git.repository", Message: "repository is required when git is enabled"})
	}
	if g.Depth < 0 {
		errs = append(errs, FieldError{Field: "rule_packs.git.depth", Message: "depth must be non-negative"})
	}
	if g.PollInterval < 0 {
		errs = append(errs, FieldError{Field: "rule_packs.git.poll_interval", Message: "poll interval must be non-negative"})
	}

	switch g.Auth.Type {
	case "none":
	case "token":
		if g.Auth.Token == "" {
			errs = append(errs, FieldError{Field: "rule_packs.git.auth.token", Message: "token is required for token auth"})
		}
	case "ssh":
		if g.Auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{Field: "rule_packs.git.auth.ssh_key_path", Message: "ssh key path is required for ssh auth"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "rule_packs.git.auth.type",
			Message: fmt.Sprintf("invalid auth type %q (must be none, token or ssh)", g.Auth.Type),
		})
	}

	return errs
}

func validateHistory(cfg *HistoryConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "history.sqlite.path", Message: "sqlite path is required"})
		}
		if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "history.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q (must be sqlite3 or sqlite)", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{Field: "history.sqlite.max_open_conns", Message: "max open conns must be non-negative"})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{Field: "history.sqlite.busy_timeout", Message: "busy timeout must be non-negative"})
		}
	case "postgres":
		if cfg.Postgres.Host == "" {
			errs = append(errs, FieldError{Field: "history.postgres.host", Message: "host is required"})
		}
		if cfg.Postgres.Database == "" {
			errs = append(errs, FieldError{Field: "history.postgres.database", Message: "database is required"})
		}
		if cfg.Postgres.Port <= 0 || cfg.Postgres.Port > 65535 {
			errs = append(errs, FieldError{Field: "history.postgres.port", Message: "port must be between 1 and 65535"})
		}
		switch cfg.Postgres.SSLMode {
		case "disable", "require", "verify-ca", "verify-full":
		default:
			errs = append(errs, FieldError{
				Field:   "history.postgres.ssl_mode",
				Message: fmt.Sprintf("invalid ssl mode %q", cfg.Postgres.SSLMode),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "history.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory, sqlite or postgres)", cfg.Backend),
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "history.retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "history.retention.max_records", Message: "max records must be non-negative"})
	}
	if (cfg.Retention.Days > 0 || cfg.Retention.MaxRecords > 0) && cfg.Retention.PruneSchedule == "" {
		errs = append(errs, FieldError{Field: "history.retention.prune_schedule", Message: "prune schedule is required when retention is active"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with /"})
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{Field: "telemetry.metrics.duration_buckets", Message: "buckets must be strictly increasing"})
			break
		}
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be always, never or ratio)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0 and 1"})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
		}
	}

	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{Field: "telemetry.health.check_timeout", Message: "check timeout must be non-negative"})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	auth := cfg.Authentication
	if !auth.Enabled {
		return nil
	}

	if len(auth.Keys) == 0 {
		errs = append(errs, FieldError{Field: "security.authentication.keys", Message: "at least one key is required when authentication is enabled"})
	}
	for i, src := range auth.Sources {
		if src.Type != "header" && src.Type != "query" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("security.authentication.sources[%d].type", i),
				Message: fmt.Sprintf("invalid source type %q (must be header or query)", src.Type),
			})
		}
		if src.Name == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("security.authentication.sources[%d].name", i), Message: "source name is required"})
		}
	}

	seen := map[string]bool{}
	for i, k := range auth.Keys {
		if k.Key == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("security.authentication.keys[%d].key", i), Message: "key is required"})
		} else if seen[k.Key] {
			errs = append(errs, FieldError{Field: fmt.Sprintf("security.authentication.keys[%d].key", i), Message: "duplicate key"})
		}
		seen[k.Key] = true
		if k.UserID == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("security.authentication.keys[%d].user_id", i), Message: "user id is required"})
		}
	}

	return errs
}
