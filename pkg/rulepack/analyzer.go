package rulepack

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/analyzer/rules"
)

// Analyzer scores text against one pack. It is immutable and safe for
// concurrent use.
type Analyzer struct {
	pack       *Pack
	thresholds rules.Thresholds
	compiled   []compiledRule
}

type compiledRule struct {
	re     *regexp.Regexp
	weight int
	factor string
}

// NewAnalyzer validates p and compiles its rules.
func NewAnalyzer(p *Pack) (*Analyzer, error) {
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	a := &Analyzer{
		pack:       p,
		thresholds: rules.Thresholds{Phishing: p.Thresholds.Phishing, Spam: p.Thresholds.Spam},
		compiled:   make([]compiledRule, 0, len(p.Rules)),
	}
	for _, r := range p.Rules {
		re, err := compileRule(r.Pattern)
		if err != nil {
			return nil, err
		}
		a.compiled = append(a.compiled, compiledRule{re: re, weight: r.Weight, factor: r.Factor})
	}
	return a, nil
}

// Name implements analyzer.Analyzer.
func (a *Analyzer) Name() string { return a.pack.Name }

// Source implements analyzer.Analyzer.
func (a *Analyzer) Source() analyzer.Source { return a.pack.Source }

// Pack returns the pack the analyzer was built from.
func (a *Analyzer) Pack() *Pack { return a.pack }

// Analyze implements analyzer.Analyzer. It returns (nil, nil) when no rule
// matches.
func (a *Analyzer) Analyze(_ context.Context, text string) (*analyzer.Result, error) {
	score := 0
	var factors []string
	for _, r := range a.compiled {
		if r.re.MatchString(text) {
			score += r.weight
			factors = append(factors, r.factor)
		}
	}
	if score == 0 {
		return nil, nil
	}

	decision, confidence := rules.Classify(score, a.thresholds)
	return &analyzer.Result{
		Source:      a.pack.Source,
		Name:        a.pack.Name,
		Decision:    decision,
		Confidence:  confidence,
		Description: fmt.Sprintf("Custom score: %d. Matched: %s", score, strings.Join(factors, ", ")),
	}, nil
}
