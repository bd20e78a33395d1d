package config

import "time"

// Config is the root configuration structure for mailguard.
// It contains the HTTP server, scan pipeline, analyzer backends, rule packs,
// scan history, telemetry and security settings.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, request limits and CORS.
	Server ServerConfig `yaml:"server"`

	// Scan contains settings for the scan pipeline: input limits and how
	// analyzers are invoked.
	Scan ScanConfig `yaml:"scan"`

	// Analyzers configures which analyzers are registered at startup.
	Analyzers AnalyzersConfig `yaml:"analyzers"`

	// RulePacks configures loading of YAML rule packs as custom analyzers.
	RulePacks RulePacksConfig `yaml:"rule_packs"`

	// History configures persistence of scan results per user.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains logging, metrics, tracing and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains authentication configuration.
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds the handling of a single API request.
	// Default: 45s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 262144 (256KB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are sent.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-API-Key"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// ScanConfig contains scan pipeline configuration.
type ScanConfig struct {
	// MaxTextLength is the maximum accepted email text length in characters.
	// Default: 10000
	MaxTextLength int `yaml:"max_text_length"`

	// RequireEmailContent rejects text with fewer than two email indicators.
	// Default: true
	RequireEmailContent bool `yaml:"require_email_content"`

	// Parallel runs analyzers concurrently.
	// Default: true
	Parallel bool `yaml:"parallel"`

	// AnalyzerTimeout bounds a single analyzer call. Zero disables it.
	// Default: 10s
	AnalyzerTimeout time.Duration `yaml:"analyzer_timeout"`

	// HistoryLimit is the number of entries returned when a history request
	// does not specify a limit.
	// Default: 10
	HistoryLimit int `yaml:"history_limit"`

	// MaxHistoryLimit caps the history limit a caller may request.
	// Default: 100
	MaxHistoryLimit int `yaml:"max_history_limit"`
}

// AnalyzersConfig configures the analyzers registered at startup.
type AnalyzersConfig struct {
	// Rules configures the built-in rule-based analyzer.
	Rules RulesConfig `yaml:"rules"`

	// Models lists statistical model backends, one analyzer each.
	Models []ModelConfig `yaml:"models"`

	// URLCheck configures the URL reputation analyzer.
	URLCheck URLCheckConfig `yaml:"url_check"`

	// LLM configures the language-model analyzer.
	LLM LLMConfig `yaml:"llm"`
}

// RulesConfig configures the rule-based analyzer.
type RulesConfig struct {
	// Enabled registers the rule-based analyzer.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Name is the analyzer name reported in results.
	// Default: "basic_analyzer"
	Name string `yaml:"name"`

	// ExtraPatterns adds case-insensitive patterns to the built-in
	// category pattern sets.
	ExtraPatterns RulePatternsConfig `yaml:"extra_patterns"`
}

// RulePatternsConfig holds extra patterns per scoring category.
type RulePatternsConfig struct {
	Urgency          []string `yaml:"urgency"`
	Financial        []string `yaml:"financial"`
	PersonalInfo     []string `yaml:"personal_info"`
	SuspiciousDomain []string `yaml:"suspicious_domain"`
}

// ModelConfig configures one statistical model analyzer backed by an
// inference server.
type ModelConfig struct {
	// Name is the analyzer name reported in results. Required.
	Name string `yaml:"name"`

	// BaseURL is the inference server base URL. Required.
	// Example: "http://127.0.0.1:9000"
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token when set. Supports ${ENV} expansion.
	APIKey string `yaml:"api_key"`

	// Labels selects the label set: "four_way", "binary" or "custom".
	// Default: "four_way"
	Labels string `yaml:"labels"`

	// CustomLabels maps output indices to decisions when Labels is "custom".
	CustomLabels []LabelConfig `yaml:"custom_labels"`

	// Timeout is the per-request timeout.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the maximum number of retries for failed requests.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// LabelConfig names one model output and the decision it maps to.
type LabelConfig struct {
	Name     string `yaml:"name"`
	Decision string `yaml:"decision"`
}

// URLCheckConfig configures the URL reputation analyzer.
type URLCheckConfig struct {
	// Enabled registers the analyzer.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Name is the analyzer name reported in results.
	// Default: "url_checker"
	Name string `yaml:"name"`

	// BaseURL is the URL reputation service base URL.
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token when set. Supports ${ENV} expansion.
	APIKey string `yaml:"api_key"`

	// Confidence is reported with every verdict.
	// Default: 0.85
	Confidence float64 `yaml:"confidence"`

	// Timeout is the per-request timeout.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the maximum number of retries for failed requests.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// LLMConfig configures the language-model analyzer.
type LLMConfig struct {
	// Enabled registers the analyzer.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Name is the analyzer name reported in results.
	// Default: "llm_analyzer"
	Name string `yaml:"name"`

	// Provider selects the client: "anthropic" or "openai".
	// Default: "anthropic"
	Provider string `yaml:"provider"`

	// Model is the provider model identifier. Required when enabled.
	Model string `yaml:"model"`

	// APIKey authenticates with the provider. Supports ${ENV} expansion.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url"`

	// MaxInputRunes truncates the email text before it is sent.
	// Default: 4000
	MaxInputRunes int `yaml:"max_input_runes"`

	// MaxTokens bounds the completion length.
	// Default: 256
	MaxTokens int `yaml:"max_tokens"`

	// Timeout is the per-request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// RulePacksConfig configures YAML rule packs.
type RulePacksConfig struct {
	// Enabled loads rule packs at startup.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is a pack file or a directory of .yaml/.yml packs.
	// Default: "./rules"
	Path string `yaml:"path"`

	// Watch reloads packs when files under Path change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce delays reloads after a burst of file events.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// Git loads packs from a Git repository instead of Path.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures Git-based rule pack loading.
type GitConfig struct {
	// Enabled determines if Git mode is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Repository URL (HTTPS or SSH).
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path within the repository to the pack files.
	// Default: "" (repository root)
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	// Default: system temp directory
	LocalPath string `yaml:"local_path"`

	// Depth for shallow clones (0 = full clone).
	// Default: 1
	Depth int `yaml:"depth"`

	// PollInterval between pulls. Zero disables polling.
	// Default: 60s
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout for Git operations.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures Git authentication.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures Git authentication.
type GitAuthConfig struct {
	// Type: "token", "ssh" or "none".
	// Default: "none"
	Type string `yaml:"type"`

	// Token for HTTPS authentication. Supports ${ENV} expansion.
	Token string `yaml:"token"`

	// SSHKeyPath for SSH authentication.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase for encrypted SSH keys. Supports ${ENV} expansion.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// HistoryConfig configures scan history storage.
type HistoryConfig struct {
	// Enabled controls whether scans are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the store: "memory", "sqlite" or "postgres".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// WriteTimeout bounds a single history write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres contains PostgreSQL-specific configuration.
	Postgres PostgresConfig `yaml:"postgres"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver: "sqlite3" (cgo) or
	// "sqlite" (pure Go).
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host string `yaml:"host"`

	// Port is the server port.
	// Default: 5432
	Port int `yaml:"port"`

	Database string `yaml:"database"`
	User     string `yaml:"user"`

	// Password supports ${ENV} expansion.
	Password string `yaml:"password"`

	// SSLMode: "disable", "require", "verify-ca", "verify-full".
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`

	// MaxConns is the pool size.
	// Default: 10
	MaxConns int32 `yaml:"max_conns"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain entries. 0 keeps them forever.
	// Default: 90
	Days int `yaml:"days"`

	// MaxRecords is the maximum number of entries to keep. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII redacts API keys and email addresses in log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "mailguard"
	Namespace string `yaml:"namespace"`

	// DurationBuckets are histogram buckets in seconds.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "mailguard"
	ServiceName string `yaml:"service_name"`

	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter settings.
type OTLPConfig struct {
	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout for export requests.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	LivenessPath  string `yaml:"liveness_path"`
	ReadinessPath string `yaml:"readiness_path"`
	VersionPath   string `yaml:"version_path"`

	// CheckTimeout bounds the readiness checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	Authentication AuthenticationConfig `yaml:"authentication"`
}

// AuthenticationConfig configures API key authentication.
type AuthenticationConfig struct {
	// Enabled requires a valid API key on /v1 routes.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sources lists where keys are read from, in order.
	// Default: [{type: header, name: Authorization, scheme: Bearer}, {type: header, name: X-API-Key}]
	Sources []APIKeySource `yaml:"sources"`

	// Keys lists accepted API keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeySource describes where an API key is read from.
type APIKeySource struct {
	// Type is "header" or "query".
	Type string `yaml:"type"`

	// Name is the header or query parameter name.
	Name string `yaml:"name"`

	// Scheme is an optional header value prefix such as "Bearer".
	Scheme string `yaml:"scheme,omitempty"`
}

// APIKeyConfig describes one accepted API key.
type APIKeyConfig struct {
	// Key supports ${ENV} expansion.
	Key string `yaml:"key"`

	// UserID owns the scan history recorded with this key.
	UserID string `yaml:"user_id"`

	// Disabled rejects the key without removing it from the file.
	Disabled bool `yaml:"disabled"`
}
