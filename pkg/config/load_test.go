package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mailguard.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:8080"
  read_timeout: "60s"

scan:
  parallel: false
  analyzer_timeout: "2s"

analyzers:
  rules:
    name: "rules_v2"
    extra_patterns:
      urgency: ["final notice"]
  models:
    - name: distilbert
      base_url: "http://127.0.0.1:9000"
      labels: binary

history:
  backend: memory

telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Scan.Parallel {
		t.Error("Parallel = true, want explicit false")
	}
	if !cfg.Scan.RequireEmailContent {
		t.Error("RequireEmailContent lost its default")
	}
	if cfg.Scan.AnalyzerTimeout != 2*time.Second {
		t.Errorf("AnalyzerTimeout = %v", cfg.Scan.AnalyzerTimeout)
	}
	if !cfg.Analyzers.Rules.Enabled {
		t.Error("Rules.Enabled lost its default")
	}
	if cfg.Analyzers.Rules.Name != "rules_v2" {
		t.Errorf("Rules.Name = %q", cfg.Analyzers.Rules.Name)
	}
	if got := cfg.Analyzers.Rules.ExtraPatterns.Urgency; len(got) != 1 || got[0] != "final notice" {
		t.Errorf("ExtraPatterns.Urgency = %v", got)
	}
	if len(cfg.Analyzers.Models) != 1 || cfg.Analyzers.Models[0].Timeout != DefaultModelTimeout {
		t.Errorf("Models = %+v", cfg.Analyzers.Models)
	}
	if cfg.History.Backend != "memory" {
		t.Errorf("History.Backend = %q", cfg.History.Backend)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfig_ExplicitZeroRetention(t *testing.T) {
	path := writeConfig(t, `
history:
  backend: memory
  retention:
    days: 0
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.History.Retention.Days != 0 {
		t.Errorf("Retention.Days = %d, want 0", cfg.History.Retention.Days)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "server: [unterminated",
			wantErr: "failed to parse",
		},
		{
			name: "invalid backend",
			content: `
history:
  backend: mongo
`,
			wantErr: "history.backend",
		},
		{
			name: "llm without model",
			content: `
analyzers:
  llm:
    enabled: true
    api_key: k
`,
			wantErr: "analyzers.llm.model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadConfig_ValidationErrorType(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "scan:\n  max_text_length: -1\n"))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	if !verr.HasField("scan.max_text_length") {
		t.Errorf("missing field error for scan.max_text_length: %v", verr)
	}
}

func TestLoadConfig_ExpandsSecrets(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-from-env")

	cfg, err := LoadConfig(writeConfig(t, `
analyzers:
  llm:
    enabled: true
    model: claude-test
    api_key: "${TEST_LLM_KEY}"
`))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Analyzers.LLM.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q, want expanded value", cfg.Analyzers.LLM.APIKey)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8080"
analyzers:
  models:
    - name: distil-bert
      base_url: "http://127.0.0.1:9000"
history:
  backend: memory
`)

	t.Setenv("MAILGUARD_SERVER_LISTEN_ADDRESS", "0.0.0.0:9090")
	t.Setenv("MAILGUARD_SCAN_PARALLEL", "false")
	t.Setenv("MAILGUARD_SCAN_ANALYZER_TIMEOUT", "3s")
	t.Setenv("MAILGUARD_MODELS_DISTIL_BERT_BASE_URL", "http://inference:9000")
	t.Setenv("MAILGUARD_TELEMETRY_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("MAILGUARD_SCAN_MAX_TEXT_LENGTH", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Scan.Parallel {
		t.Error("Parallel not overridden")
	}
	if cfg.Scan.AnalyzerTimeout != 3*time.Second {
		t.Errorf("AnalyzerTimeout = %v", cfg.Scan.AnalyzerTimeout)
	}
	if cfg.Analyzers.Models[0].BaseURL != "http://inference:9000" {
		t.Errorf("model BaseURL = %q", cfg.Analyzers.Models[0].BaseURL)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("SampleRatio = %v", cfg.Telemetry.Tracing.SampleRatio)
	}
	if cfg.Scan.MaxTextLength != DefaultMaxTextLength {
		t.Errorf("unparseable override changed MaxTextLength to %d", cfg.Scan.MaxTextLength)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("MAILGUARD_HISTORY_BACKEND", "memory")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides(\"\") error = %v", err)
	}
	if cfg.History.Backend != "memory" {
		t.Errorf("Backend = %q, want memory", cfg.History.Backend)
	}
}
