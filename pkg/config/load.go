package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// Keys missing from the file keep their defaults. Secret fields are expanded
// from ${VAR} references and the result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML onto the defaults without validating. An empty document
// yields the default configuration.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	expandSecrets(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention MAILGUARD_SECTION_FIELD (e.g., MAILGUARD_SERVER_LISTEN_ADDRESS)
// and always take precedence over the file.
//
// An empty path skips the file and starts from the defaults.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// expandSecrets resolves ${VAR} references in fields that hold credentials.
func expandSecrets(cfg *Config) {
	for i := range cfg.Analyzers.Models {
		cfg.Analyzers.Models[i].APIKey = os.ExpandEnv(cfg.Analyzers.Models[i].APIKey)
	}
	cfg.Analyzers.URLCheck.APIKey = os.ExpandEnv(cfg.Analyzers.URLCheck.APIKey)
	cfg.Analyzers.LLM.APIKey = os.ExpandEnv(cfg.Analyzers.LLM.APIKey)
	cfg.RulePacks.Git.Auth.Token = os.ExpandEnv(cfg.RulePacks.Git.Auth.Token)
	cfg.RulePacks.Git.Auth.SSHKeyPassphrase = os.ExpandEnv(cfg.RulePacks.Git.Auth.SSHKeyPassphrase)
	cfg.History.Postgres.Password = os.ExpandEnv(cfg.History.Postgres.Password)
	for i := range cfg.Security.Authentication.Keys {
		cfg.Security.Authentication.Keys[i].Key = os.ExpandEnv(cfg.Security.Authentication.Keys[i].Key)
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("MAILGUARD_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("MAILGUARD_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("MAILGUARD_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("MAILGUARD_SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)

	// Scan overrides
	envInt("MAILGUARD_SCAN_MAX_TEXT_LENGTH", &cfg.Scan.MaxTextLength)
	envBool("MAILGUARD_SCAN_REQUIRE_EMAIL_CONTENT", &cfg.Scan.RequireEmailContent)
	envBool("MAILGUARD_SCAN_PARALLEL", &cfg.Scan.Parallel)
	envDuration("MAILGUARD_SCAN_ANALYZER_TIMEOUT", &cfg.Scan.AnalyzerTimeout)

	// Analyzer overrides
	envBool("MAILGUARD_ANALYZERS_RULES_ENABLED", &cfg.Analyzers.Rules.Enabled)
	envBool("MAILGUARD_ANALYZERS_URL_CHECK_ENABLED", &cfg.Analyzers.URLCheck.Enabled)
	envString("MAILGUARD_ANALYZERS_URL_CHECK_BASE_URL", &cfg.Analyzers.URLCheck.BaseURL)
	envString("MAILGUARD_ANALYZERS_URL_CHECK_API_KEY", &cfg.Analyzers.URLCheck.APIKey)
	envBool("MAILGUARD_ANALYZERS_LLM_ENABLED", &cfg.Analyzers.LLM.Enabled)
	envString("MAILGUARD_ANALYZERS_LLM_PROVIDER", &cfg.Analyzers.LLM.Provider)
	envString("MAILGUARD_ANALYZERS_LLM_MODEL", &cfg.Analyzers.LLM.Model)
	envString("MAILGUARD_ANALYZERS_LLM_API_KEY", &cfg.Analyzers.LLM.APIKey)
	envString("MAILGUARD_ANALYZERS_LLM_BASE_URL", &cfg.Analyzers.LLM.BaseURL)
	applyModelEnvOverrides(cfg)

	// Rule pack overrides
	envBool("MAILGUARD_RULE_PACKS_ENABLED", &cfg.RulePacks.Enabled)
	envString("MAILGUARD_RULE_PACKS_PATH", &cfg.RulePacks.Path)
	envBool("MAILGUARD_RULE_PACKS_WATCH", &cfg.RulePacks.Watch)
	envString("MAILGUARD_RULE_PACKS_GIT_REPOSITORY", &cfg.RulePacks.Git.Repository)
	envString("MAILGUARD_RULE_PACKS_GIT_BRANCH", &cfg.RulePacks.Git.Branch)
	envString("MAILGUARD_RULE_PACKS_GIT_AUTH_TOKEN", &cfg.RulePacks.Git.Auth.Token)

	// History overrides
	envBool("MAILGUARD_HISTORY_ENABLED", &cfg.History.Enabled)
	envString("MAILGUARD_HISTORY_BACKEND", &cfg.History.Backend)
	envString("MAILGUARD_HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	envString("MAILGUARD_HISTORY_SQLITE_DRIVER", &cfg.History.SQLite.Driver)
	envString("MAILGUARD_HISTORY_POSTGRES_HOST", &cfg.History.Postgres.Host)
	envInt("MAILGUARD_HISTORY_POSTGRES_PORT", &cfg.History.Postgres.Port)
	envString("MAILGUARD_HISTORY_POSTGRES_DATABASE", &cfg.History.Postgres.Database)
	envString("MAILGUARD_HISTORY_POSTGRES_USER", &cfg.History.Postgres.User)
	envString("MAILGUARD_HISTORY_POSTGRES_PASSWORD", &cfg.History.Postgres.Password)
	envString("MAILGUARD_HISTORY_POSTGRES_SSL_MODE", &cfg.History.Postgres.SSLMode)
	envInt("MAILGUARD_HISTORY_RETENTION_DAYS", &cfg.History.Retention.Days)

	// Telemetry overrides
	envString("MAILGUARD_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("MAILGUARD_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("MAILGUARD_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("MAILGUARD_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("MAILGUARD_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("MAILGUARD_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	if val := os.Getenv("MAILGUARD_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Security overrides
	envBool("MAILGUARD_SECURITY_AUTHENTICATION_ENABLED", &cfg.Security.Authentication.Enabled)
}

// applyModelEnvOverrides overrides configured model backends by name using
// MAILGUARD_MODELS_<NAME>_BASE_URL and MAILGUARD_MODELS_<NAME>_API_KEY, where
// NAME is the upper-cased model name with dashes replaced by underscores.
func applyModelEnvOverrides(cfg *Config) {
	for i := range cfg.Analyzers.Models {
		m := &cfg.Analyzers.Models[i]
		prefix := fmt.Sprintf("MAILGUARD_MODELS_%s_", envName(m.Name))
		envString(prefix+"BASE_URL", &m.BaseURL)
		envString(prefix+"API_KEY", &m.APIKey)
		envDuration(prefix+"TIMEOUT", &m.Timeout)
	}
}

func envName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
