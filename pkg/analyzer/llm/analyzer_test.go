package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"mercator-hq/mailguard/internal/mockbackend"
	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/config"
)

type fakeClient struct {
	reply  string
	err    error
	system string
	user   string
}

func (f *fakeClient) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestNew_NoClient(t *testing.T) {
	_, err := New(config.LLMConfig{Name: "claude"}, nil)
	var unavailable *analyzer.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("New() error = %v, want *analyzer.UnavailableError", err)
	}
}

func TestAnalyze_Verdict(t *testing.T) {
	client := &fakeClient{reply: `{"decision": "phishing", "confidence": 0.88, "reason": "spoofed bank"}`}
	a, err := New(config.LLMConfig{}, client)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := a.Analyze(context.Background(), "Verify your bank account now")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Decision != analyzer.DecisionPhishing || res.Confidence != 0.88 {
		t.Errorf("got %s %.2f", res.Decision, res.Confidence)
	}
	if res.Name != config.DefaultLLMName || res.Source != analyzer.SourceLLM {
		t.Errorf("provenance = %s/%s", res.Source, res.Name)
	}
	if res.Description != "spoofed bank" {
		t.Errorf("Description = %q", res.Description)
	}
	if client.system != SystemPrompt {
		t.Error("system prompt not sent")
	}
	if !strings.Contains(client.user, "Verify your bank account now") {
		t.Errorf("user prompt = %q", client.user)
	}
}

func TestAnalyze_DefaultDescription(t *testing.T) {
	a, _ := New(config.LLMConfig{}, &fakeClient{reply: `{"decision": "safe", "confidence": 0.7}`})
	res, err := a.Analyze(context.Background(), "Lunch on Friday?")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Description != "Model verdict: safe" {
		t.Errorf("Description = %q", res.Description)
	}
}

func TestAnalyze_Truncates(t *testing.T) {
	client := &fakeClient{reply: `{"decision": "safe", "confidence": 0.7}`}
	a, _ := New(config.LLMConfig{MaxInputRunes: 5}, client)

	if _, err := a.Analyze(context.Background(), "abcdefghij"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !strings.Contains(client.user, "abcde") || strings.Contains(client.user, "abcdef") {
		t.Errorf("user prompt not truncated: %q", client.user)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
	}{
		{"client error", &fakeClient{err: errors.New("boom")}},
		{"unparseable reply", &fakeClient{reply: "Sorry, I cannot help with that."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := New(config.LLMConfig{}, tt.client)
			res, err := a.Analyze(context.Background(), "hello")
			if err == nil {
				t.Fatal("Analyze() error = nil, want error")
			}
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr bool
	}{
		{"anthropic", config.LLMConfig{Provider: "anthropic", APIKey: "k"}, false},
		{"openai", config.LLMConfig{Provider: "openai", APIKey: "k"}, false},
		{"missing key", config.LLMConfig{Provider: "anthropic"}, true},
		{"unknown provider", config.LLMConfig{Provider: "cohere", APIKey: "k"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewClient_MissingKeyUnavailable(t *testing.T) {
	_, err := NewClient(config.LLMConfig{Name: "claude", Provider: "anthropic", Model: "m"})

	var unavailable *analyzer.UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("NewClient() error = %v, want *analyzer.UnavailableError", err)
	}
	if unavailable.Analyzer != "claude" {
		t.Errorf("Analyzer = %q, want %q", unavailable.Analyzer, "claude")
	}
}

func TestAnthropicClient_Complete(t *testing.T) {
	ms := mockbackend.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/v1/messages", mockbackend.MockAnthropicResponse(
		`{"decision": "spam", "confidence": 0.75, "reason": "bulk promotion"}`, "claude-test"))

	client, err := NewAnthropicClient(config.LLMConfig{APIKey: "test-key", BaseURL: ms.URL(), Model: "claude-test"})
	if err != nil {
		t.Fatalf("NewAnthropicClient() error = %v", err)
	}
	a, _ := New(config.LLMConfig{Name: "claude"}, client)

	res, err := a.Analyze(context.Background(), "Huge discounts today only")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Decision != analyzer.DecisionSpam || res.Confidence != 0.75 {
		t.Errorf("got %s %.2f", res.Decision, res.Confidence)
	}

	req := ms.LastRequest()
	if req.Header.Get("X-Api-Key") != "test-key" {
		t.Errorf("x-api-key = %q", req.Header.Get("X-Api-Key"))
	}
	var body map[string]any
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if body["model"] != "claude-test" {
		t.Errorf("model = %v", body["model"])
	}
}

func TestAnthropicClient_AuthError(t *testing.T) {
	ms := mockbackend.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/v1/messages", mockbackend.MockAuthError())

	client, _ := NewAnthropicClient(config.LLMConfig{APIKey: "bad", BaseURL: ms.URL(), Model: "claude-test"})
	_, err := client.Complete(context.Background(), "", "hi")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Complete() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 401 {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
}

func TestOpenAIClient_Complete(t *testing.T) {
	ms := mockbackend.NewMockServer()
	defer ms.Close()
	ms.SetResponse("/v1/chat/completions", mockbackend.MockOpenAIResponse(
		"```json\n{\"decision\": \"ham\", \"confidence\": 0.9}\n```", "gpt-test"))

	client, err := NewOpenAIClient(config.LLMConfig{APIKey: "test-key", BaseURL: ms.URL() + "/v1", Model: "gpt-test"})
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}
	a, _ := New(config.LLMConfig{}, client)

	res, err := a.Analyze(context.Background(), "See you at the meeting")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Decision != analyzer.DecisionSafe || res.Confidence != 0.9 {
		t.Errorf("got %s %.2f", res.Decision, res.Confidence)
	}

	req := ms.LastRequest()
	if req.Header.Get("Authorization") != "Bearer test-key" {
		t.Errorf("Authorization = %q", req.Header.Get("Authorization"))
	}
	var body struct {
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", body.Messages)
	}
}
