package rulepack

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/mailguard/pkg/analyzer"
)

const invoicePack = `
name: invoice_fraud
description: Fake invoices
thresholds:
  phishing: 70
  spam: 40
rules:
  - id: wire_change
    pattern: 'update(d)? (our|the) (bank|wire) details'
    weight: 60
    factor: Payment redirection
  - id: overdue
    pattern: 'overdue invoice'
    weight: 20
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(invoicePack), "invoice.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Name != "invoice_fraud" || p.File != "invoice.yaml" {
		t.Errorf("pack = %+v", p)
	}
	if p.Source != analyzer.SourceCustom {
		t.Errorf("Source = %q, want default %q", p.Source, analyzer.SourceCustom)
	}
	if len(p.Rules) != 2 || p.Rules[1].Factor != "overdue" {
		t.Errorf("rules = %+v", p.Rules)
	}
}

func TestParse_DefaultThresholds(t *testing.T) {
	p, err := Parse([]byte("name: x\nrules:\n  - {id: a, pattern: foo, weight: 5}\n"), "x.yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if p.Thresholds.Phishing != 70 || p.Thresholds.Spam != 40 {
		t.Errorf("Thresholds = %+v", p.Thresholds)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantProblem string
	}{
		{"missing name", "rules:\n  - {id: a, pattern: foo, weight: 5}\n", "name"},
		{"bad name", "name: 'has space'\nrules:\n  - {id: a, pattern: foo, weight: 5}\n", "name"},
		{"no rules", "name: x\n", "at least one rule"},
		{"zero weight", "name: x\nrules:\n  - {id: a, pattern: foo, weight: 0}\n", "weight must be positive"},
		{"negative weight", "name: x\nrules:\n  - {id: a, pattern: foo, weight: -3}\n", "weight must be positive"},
		{"bad regex", "name: x\nrules:\n  - {id: a, pattern: 'foo(', weight: 5}\n", "rule a"},
		{"missing pattern", "name: x\nrules:\n  - {id: a, weight: 5}\n", "pattern is required"},
		{"missing id", "name: x\nrules:\n  - {pattern: foo, weight: 5}\n", "id is required"},
		{"duplicate id", "name: x\nrules:\n  - {id: a, pattern: foo, weight: 5}\n  - {id: a, pattern: bar, weight: 5}\n", "duplicate id"},
		{"inverted thresholds", "name: x\nthresholds: {phishing: 30, spam: 50}\nrules:\n  - {id: a, pattern: foo, weight: 5}\n", "thresholds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "test.yaml")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Parse() error = %v, want *ValidationError", err)
			}
			if !strings.Contains(ve.Error(), tt.wantProblem) {
				t.Errorf("error %q does not mention %q", ve.Error(), tt.wantProblem)
			}
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("name: x\nrulez: []\n"), "x.yaml")
	if err == nil {
		t.Fatal("Parse() error = nil, want unknown field error")
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.yaml"), invoicePack)
	writeFile(t, filepath.Join(dir, "sub", "a.yml"), "name: gift_cards\nrules:\n  - {id: g, pattern: 'gift cards?', weight: 45}\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a pack")
	writeFile(t, filepath.Join(dir, ".hidden.yaml"), "garbage: [")
	writeFile(t, filepath.Join(dir, ".git", "x.yaml"), "garbage: [")

	packs, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(packs) != 2 {
		t.Fatalf("Load() returned %d packs, want 2", len(packs))
	}
	if packs[0].Name != "invoice_fraud" || packs[1].Name != "gift_cards" {
		t.Errorf("order = %s, %s", packs[0].Name, packs[1].Name)
	}
}

func TestLoad_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoice.yaml")
	writeFile(t, path, invoicePack)

	packs, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(packs) != 1 || packs[0].File != path {
		t.Errorf("packs = %+v", packs)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("Load() error = nil")
		}
	})

	t.Run("duplicate names", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.yaml"), invoicePack)
		writeFile(t, filepath.Join(dir, "b.yaml"), invoicePack)
		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), "duplicate rule pack name") {
			t.Errorf("Load() error = %v", err)
		}
	})

	t.Run("one invalid file fails all", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.yaml"), invoicePack)
		writeFile(t, filepath.Join(dir, "b.yaml"), "name: bad\nrules: []\n")
		if _, err := Load(dir); err == nil {
			t.Error("Load() error = nil")
		}
	})
}
