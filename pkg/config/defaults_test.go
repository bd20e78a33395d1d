package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"server.listen_address", cfg.Server.ListenAddress, DefaultListenAddress},
		{"server.request_timeout", cfg.Server.RequestTimeout, DefaultRequestTimeout},
		{"server.cors.enabled", cfg.Server.CORS.Enabled, true},
		{"scan.max_text_length", cfg.Scan.MaxTextLength, 10000},
		{"scan.require_email_content", cfg.Scan.RequireEmailContent, true},
		{"scan.parallel", cfg.Scan.Parallel, true},
		{"scan.history_limit", cfg.Scan.HistoryLimit, 10},
		{"analyzers.rules.enabled", cfg.Analyzers.Rules.Enabled, true},
		{"analyzers.rules.name", cfg.Analyzers.Rules.Name, "basic_analyzer"},
		{"analyzers.url_check.enabled", cfg.Analyzers.URLCheck.Enabled, false},
		{"analyzers.url_check.confidence", cfg.Analyzers.URLCheck.Confidence, 0.85},
		{"analyzers.llm.provider", cfg.Analyzers.LLM.Provider, "anthropic"},
		{"history.enabled", cfg.History.Enabled, true},
		{"history.backend", cfg.History.Backend, "sqlite"},
		{"history.sqlite.driver", cfg.History.SQLite.Driver, "sqlite3"},
		{"history.sqlite.wal_mode", cfg.History.SQLite.WALMode, true},
		{"history.retention.days", cfg.History.Retention.Days, 90},
		{"telemetry.logging.redact_pii", cfg.Telemetry.Logging.RedactPII, true},
		{"telemetry.metrics.enabled", cfg.Telemetry.Metrics.Enabled, true},
		{"telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled, false},
		{"security.authentication.enabled", cfg.Security.Authentication.Enabled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration does not validate: %v", err)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{ListenAddress: "0.0.0.0:9999", ReadTimeout: 5 * time.Second},
		Analyzers: AnalyzersConfig{
			Models: []ModelConfig{{Name: "distilbert", BaseURL: "http://m:9000", Labels: "binary", MaxRetries: 7}},
		},
	}

	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("ListenAddress overwritten: %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout overwritten: %v", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v, want default", cfg.Server.WriteTimeout)
	}

	m := cfg.Analyzers.Models[0]
	if m.Labels != "binary" || m.MaxRetries != 7 {
		t.Errorf("model overwritten: %+v", m)
	}
	if m.Timeout != DefaultModelTimeout {
		t.Errorf("model timeout = %v, want %v", m.Timeout, DefaultModelTimeout)
	}

	if len(cfg.Security.Authentication.Sources) != 2 {
		t.Errorf("auth sources = %d, want 2", len(cfg.Security.Authentication.Sources))
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := Default()
	ApplyDefaults(cfg)
	ApplyDefaults(cfg)

	if got := len(cfg.Telemetry.Metrics.DurationBuckets); got != len(DefaultDurationBuckets) {
		t.Errorf("duration buckets = %d, want %d", got, len(DefaultDurationBuckets))
	}
}
