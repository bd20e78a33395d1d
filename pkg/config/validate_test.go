package config

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:      "empty listen address",
			modify:    func(c *Config) { c.Server.ListenAddress = "" },
			wantField: "server.listen_address",
		},
		{
			name:      "negative analyzer timeout",
			modify:    func(c *Config) { c.Scan.AnalyzerTimeout = -1 },
			wantField: "scan.analyzer_timeout",
		},
		{
			name:      "max history limit below default limit",
			modify:    func(c *Config) { c.Scan.MaxHistoryLimit = 5 },
			wantField: "scan.max_history_limit",
		},
		{
			name: "invalid extra pattern",
			modify: func(c *Config) {
				c.Analyzers.Rules.ExtraPatterns.Financial = []string{"wire(("}
			},
			wantField: "analyzers.rules.extra_patterns.financial[0]",
		},
		{
			name: "model without base url",
			modify: func(c *Config) {
				c.Analyzers.Models = []ModelConfig{{Name: "m", Labels: "binary"}}
			},
			wantField: "analyzers.models[0].base_url",
		},
		{
			name: "duplicate model names",
			modify: func(c *Config) {
				c.Analyzers.Models = []ModelConfig{
					{Name: "m", BaseURL: "http://a:1", Labels: "binary"},
					{Name: "m", BaseURL: "http://b:1", Labels: "binary"},
				}
			},
			wantField: "analyzers.models[1].name",
		},
		{
			name: "unknown label set",
			modify: func(c *Config) {
				c.Analyzers.Models = []ModelConfig{{Name: "m", BaseURL: "http://a:1", Labels: "ternary"}}
			},
			wantField: "analyzers.models[0].labels",
		},
		{
			name: "custom label with bad decision",
			modify: func(c *Config) {
				c.Analyzers.Models = []ModelConfig{{
					Name: "m", BaseURL: "http://a:1", Labels: "custom",
					CustomLabels: []LabelConfig{{Name: "ham", Decision: "info"}},
				}}
			},
			wantField: "analyzers.models[0].custom_labels[0].decision",
		},
		{
			name: "url check with ftp url",
			modify: func(c *Config) {
				c.Analyzers.URLCheck.Enabled = true
				c.Analyzers.URLCheck.BaseURL = "ftp://x"
			},
			wantField: "analyzers.url_check.base_url",
		},
		{
			name: "url check confidence above one",
			modify: func(c *Config) {
				c.Analyzers.URLCheck.Enabled = true
				c.Analyzers.URLCheck.BaseURL = "http://x"
				c.Analyzers.URLCheck.Confidence = 1.2
			},
			wantField: "analyzers.url_check.confidence",
		},
		{
			name: "llm unknown provider",
			modify: func(c *Config) {
				c.Analyzers.LLM = LLMConfig{Enabled: true, Provider: "gemini", Model: "x", APIKey: "k", MaxInputRunes: 10}
			},
			wantField: "analyzers.llm.provider",
		},
		{
			name: "git without repository",
			modify: func(c *Config) {
				c.RulePacks.Enabled = true
				c.RulePacks.Git.Enabled = true
			},
			wantField: "rule_packs.git.repository",
		},
		{
			name: "git token auth without token",
			modify: func(c *Config) {
				c.RulePacks.Enabled = true
				c.RulePacks.Git.Enabled = true
				c.RulePacks.Git.Repository = "https://example.com/rules.git"
				c.RulePacks.Git.Auth.Type = "token"
			},
			wantField: "rule_packs.git.auth.token",
		},
		{
			name:      "bad sqlite driver",
			modify:    func(c *Config) { c.History.SQLite.Driver = "libsql" },
			wantField: "history.sqlite.driver",
		},
		{
			name: "postgres without host",
			modify: func(c *Config) {
				c.History.Backend = "postgres"
				c.History.Postgres.Database = "mailguard"
			},
			wantField: "history.postgres.host",
		},
		{
			name:      "negative retention",
			modify:    func(c *Config) { c.History.Retention.Days = -3 },
			wantField: "history.retention.days",
		},
		{
			name:      "bad log level",
			modify:    func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "unsorted buckets",
			modify:    func(c *Config) { c.Telemetry.Metrics.DurationBuckets = []float64{1, 0.5} },
			wantField: "telemetry.metrics.duration_buckets",
		},
		{
			name: "tracing ratio out of range",
			modify: func(c *Config) {
				c.Telemetry.Tracing.Enabled = true
				c.Telemetry.Tracing.SampleRatio = 2
			},
			wantField: "telemetry.tracing.sample_ratio",
		},
		{
			name:      "auth without keys",
			modify:    func(c *Config) { c.Security.Authentication.Enabled = true },
			wantField: "security.authentication.keys",
		},
		{
			name: "auth key without user",
			modify: func(c *Config) {
				c.Security.Authentication.Enabled = true
				c.Security.Authentication.Keys = []APIKeyConfig{{Key: "k"}}
			},
			wantField: "security.authentication.keys[0].user_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := Validate(cfg)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if !verr.HasField(tt.wantField) {
				t.Errorf("missing field error %q in %v", tt.wantField, verr)
			}
		})
	}
}

func TestValidate_DisabledSectionsSkipped(t *testing.T) {
	cfg := Default()
	cfg.History.Enabled = false
	cfg.History.Backend = "mongo"
	cfg.Analyzers.LLM.Provider = "gemini"
	cfg.RulePacks.Git.Auth.Type = "kerberos"

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() = %v, want nil for disabled sections", err)
	}
}

func TestValidate_LLMWithoutKey(t *testing.T) {
	cfg := Default()
	cfg.Analyzers.LLM.Enabled = true
	cfg.Analyzers.LLM.Model = "claude-test"
	cfg.Analyzers.LLM.APIKey = ""

	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() = %v, want nil; a missing key leaves the analyzer unregistered", err)
	}
}

func TestValidationError_Format(t *testing.T) {
	single := &ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}}}
	if got := single.Error(); got != "configuration validation failed: a: bad" {
		t.Errorf("single Error() = %q", got)
	}

	multi := &ValidationError{Errors: []FieldError{{Field: "a", Message: "bad"}, {Field: "b", Message: "worse"}}}
	got := multi.Error()
	if !strings.Contains(got, "2 errors") || !strings.Contains(got, "  - b: worse") {
		t.Errorf("multi Error() = %q", got)
	}
}
