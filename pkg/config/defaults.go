package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 45 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = 262144  // 256KB
	DefaultCORSMaxAge      = 3600

	// Scan defaults
	DefaultMaxTextLength   = 10000
	DefaultAnalyzerTimeout = 10 * time.Second
	DefaultHistoryLimit    = 10
	DefaultMaxHistoryLimit = 100

	// Analyzer defaults
	DefaultRulesName          = "basic_analyzer"
	DefaultModelLabels        = "four_way"
	DefaultModelTimeout       = 10 * time.Second
	DefaultModelMaxRetries    = 2
	DefaultURLCheckName       = "url_checker"
	DefaultURLCheckConfidence = 0.85
	DefaultURLCheckTimeout    = 5 * time.Second
	DefaultURLCheckMaxRetries = 2
	DefaultLLMName            = "llm_analyzer"
	DefaultLLMProvider        = "anthropic"
	DefaultLLMMaxInputRunes   = 4000
	DefaultLLMMaxTokens       = 256
	DefaultLLMTimeout         = 30 * time.Second

	// Rule pack defaults
	DefaultRulePacksPath    = "./rules"
	DefaultRulePackDebounce = 100 * time.Millisecond
	DefaultGitBranch        = "main"
	DefaultGitDepth         = 1
	DefaultGitPollInterval  = 60 * time.Second
	DefaultGitTimeout       = 30 * time.Second
	DefaultGitAuthType      = "none"

	// History defaults
	DefaultHistoryBackend      = "sqlite"
	DefaultHistoryWriteTimeout = 5 * time.Second
	DefaultSQLitePath          = "data/history.db"
	DefaultSQLiteDriver        = "sqlite3"
	DefaultSQLiteMaxOpenConns  = 10
	DefaultSQLiteMaxIdleConns  = 5
	DefaultSQLiteBusyTimeout   = 5 * time.Second
	DefaultPostgresPort        = 5432
	DefaultPostgresSSLMode     = "require"
	DefaultPostgresMaxConns    = int32(10)
	DefaultRetentionDays       = 90
	DefaultRetentionSchedule   = "0 3 * * *"
	DefaultRetentionMaxRecords = int64(0)

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "mailguard"
	DefaultTracingSampler     = "ratio"
	DefaultTracingRatio       = 1.0
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingService     = "mailguard"
	DefaultOTLPTimeout        = 10 * time.Second
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultVersionPath        = "/version"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// DefaultDurationBuckets are the histogram buckets used for scan and
// analyzer latencies.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Default returns a configuration with every default applied, including
// the boolean settings that default to true. LoadConfig decodes YAML on top
// of it so that omitted keys keep their defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.CORS.Enabled = true
	cfg.Scan.RequireEmailContent = true
	cfg.Scan.Parallel = true
	cfg.Analyzers.Rules.Enabled = true
	cfg.History.Enabled = true
	cfg.History.SQLite.WALMode = true
	cfg.Telemetry.Logging.RedactPII = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Tracing.OTLP.Insecure = true
	// Zero days means keep forever, so the default is only applied here.
	cfg.History.Retention.Days = DefaultRetentionDays
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for any fields that have zero values.
// Boolean fields are left alone; see Default.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	// Scan defaults
	if cfg.Scan.MaxTextLength == 0 {
		cfg.Scan.MaxTextLength = DefaultMaxTextLength
	}
	if cfg.Scan.AnalyzerTimeout == 0 {
		cfg.Scan.AnalyzerTimeout = DefaultAnalyzerTimeout
	}
	if cfg.Scan.HistoryLimit == 0 {
		cfg.Scan.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.Scan.MaxHistoryLimit == 0 {
		cfg.Scan.MaxHistoryLimit = DefaultMaxHistoryLimit
	}

	applyAnalyzerDefaults(&cfg.Analyzers)
	applyRulePackDefaults(&cfg.RulePacks)
	applyHistoryDefaults(&cfg.History)
	applyTelemetryDefaults(&cfg.Telemetry)

	// Authentication sources
	if len(cfg.Security.Authentication.Sources) == 0 {
		cfg.Security.Authentication.Sources = []APIKeySource{
			{Type: "header", Name: "Authorization", Scheme: "Bearer"},
			{Type: "header", Name: "X-API-Key"},
		}
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	cors := &s.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-ID", "X-API-Key"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyAnalyzerDefaults(a *AnalyzersConfig) {
	if a.Rules.Name == "" {
		a.Rules.Name = DefaultRulesName
	}

	for i := range a.Models {
		m := &a.Models[i]
		if m.Labels == "" {
			m.Labels = DefaultModelLabels
		}
		if m.Timeout == 0 {
			m.Timeout = DefaultModelTimeout
		}
		if m.MaxRetries == 0 {
			m.MaxRetries = DefaultModelMaxRetries
		}
	}

	u := &a.URLCheck
	if u.Name == "" {
		u.Name = DefaultURLCheckName
	}
	if u.Confidence == 0 {
		u.Confidence = DefaultURLCheckConfidence
	}
	if u.Timeout == 0 {
		u.Timeout = DefaultURLCheckTimeout
	}
	if u.MaxRetries == 0 {
		u.MaxRetries = DefaultURLCheckMaxRetries
	}

	l := &a.LLM
	if l.Name == "" {
		l.Name = DefaultLLMName
	}
	if l.Provider == "" {
		l.Provider = DefaultLLMProvider
	}
	if l.MaxInputRunes == 0 {
		l.MaxInputRunes = DefaultLLMMaxInputRunes
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = DefaultLLMMaxTokens
	}
	if l.Timeout == 0 {
		l.Timeout = DefaultLLMTimeout
	}
}

func applyRulePackDefaults(r *RulePacksConfig) {
	if r.Path == "" {
		r.Path = DefaultRulePacksPath
	}
	if r.Debounce == 0 {
		r.Debounce = DefaultRulePackDebounce
	}

	g := &r.Git
	if g.Branch == "" {
		g.Branch = DefaultGitBranch
	}
	if g.Depth == 0 {
		g.Depth = DefaultGitDepth
	}
	if g.PollInterval == 0 {
		g.PollInterval = DefaultGitPollInterval
	}
	if g.Timeout == 0 {
		g.Timeout = DefaultGitTimeout
	}
	if g.Auth.Type == "" {
		g.Auth.Type = DefaultGitAuthType
	}
}

func applyHistoryDefaults(h *HistoryConfig) {
	if h.Backend == "" {
		h.Backend = DefaultHistoryBackend
	}
	if h.WriteTimeout == 0 {
		h.WriteTimeout = DefaultHistoryWriteTimeout
	}

	s := &h.SQLite
	if s.Path == "" {
		s.Path = DefaultSQLitePath
	}
	if s.Driver == "" {
		s.Driver = DefaultSQLiteDriver
	}
	if s.MaxOpenConns == 0 {
		s.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if s.MaxIdleConns == 0 {
		s.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if s.BusyTimeout == 0 {
		s.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	p := &h.Postgres
	if p.Port == 0 {
		p.Port = DefaultPostgresPort
	}
	if p.SSLMode == "" {
		p.SSLMode = DefaultPostgresSSLMode
	}
	if p.MaxConns == 0 {
		p.MaxConns = DefaultPostgresMaxConns
	}

	if h.Retention.PruneSchedule == "" {
		h.Retention.PruneSchedule = DefaultRetentionSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.VersionPath == "" {
		t.Health.VersionPath = DefaultVersionPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
