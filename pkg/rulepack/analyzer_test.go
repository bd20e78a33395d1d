package rulepack

import (
	"context"
	"math"
	"testing"

	"mercator-hq/mailguard/pkg/analyzer"
)

func mustAnalyzer(t *testing.T, yaml string) *Analyzer {
	t.Helper()
	p, err := Parse([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	a, err := NewAnalyzer(p)
	if err != nil {
		t.Fatalf("NewAnalyzer() error = %v", err)
	}
	return a
}

func TestAnalyzer_Analyze(t *testing.T) {
	a := mustAnalyzer(t, invoicePack)

	tests := []struct {
		name           string
		text           string
		wantNil        bool
		wantDecision   analyzer.Decision
		wantConfidence float64
		wantDesc       string
	}{
		{
			name:    "no match is absence",
			text:    "Lunch on Friday?",
			wantNil: true,
		},
		{
			name:           "low score is safe",
			text:           "Reminder: OVERDUE invoice attached",
			wantDecision:   analyzer.DecisionSafe,
			wantConfidence: 0.6,
			wantDesc:       "Custom score: 20. Matched: overdue",
		},
		{
			name:           "spam band",
			text:           "We have updated our bank details",
			wantDecision:   analyzer.DecisionSpam,
			wantConfidence: 0.85,
			wantDesc:       "Custom score: 60. Matched: Payment redirection",
		},
		{
			name:           "phishing band",
			text:           "Overdue invoice: please note we updated the wire details",
			wantDecision:   analyzer.DecisionPhishing,
			wantConfidence: 0.8,
			wantDesc:       "Custom score: 80. Matched: Payment redirection, overdue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := a.Analyze(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if tt.wantNil {
				if res != nil {
					t.Fatalf("Analyze() = %+v, want nil", res)
				}
				return
			}
			if res == nil {
				t.Fatal("Analyze() = nil")
			}
			if res.Decision != tt.wantDecision {
				t.Errorf("Decision = %q, want %q", res.Decision, tt.wantDecision)
			}
			if math.Abs(res.Confidence-tt.wantConfidence) > 1e-9 {
				t.Errorf("Confidence = %v, want %v", res.Confidence, tt.wantConfidence)
			}
			if res.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", res.Description, tt.wantDesc)
			}
			if res.Name != "invoice_fraud" || res.Source != analyzer.SourceCustom {
				t.Errorf("provenance = %s/%s", res.Source, res.Name)
			}
			if err := res.Validate(); err != nil {
				t.Errorf("result invalid: %v", err)
			}
		})
	}
}

func TestAnalyzer_RuleWeightCountsOnce(t *testing.T) {
	a := mustAnalyzer(t, "name: x\nrules:\n  - {id: free, pattern: free, weight: 10}\n")
	res, _ := a.Analyze(context.Background(), "free free free free free")
	if res == nil || res.Description != "Custom score: 10. Matched: free" {
		t.Errorf("result = %+v", res)
	}
}

func TestAnalyzer_CustomThresholdsAndSource(t *testing.T) {
	a := mustAnalyzer(t, `
name: strict
source: corporate_policy
thresholds: {phishing: 20, spam: 10}
rules:
  - {id: ext, pattern: 'external sender', weight: 25}
`)
	if a.Source() != "corporate_policy" {
		t.Errorf("Source() = %q", a.Source())
	}
	res, _ := a.Analyze(context.Background(), "CAUTION: External sender")
	if res.Decision != analyzer.DecisionPhishing || res.Confidence != 0.25 {
		t.Errorf("got %s %.2f", res.Decision, res.Confidence)
	}
}

func TestNewAnalyzer_Invalid(t *testing.T) {
	if _, err := NewAnalyzer(&Pack{Name: "x"}); err == nil {
		t.Error("NewAnalyzer() error = nil for pack without rules")
	}
}
