package rules

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/config"
)

// DefaultName is the analyzer name used when the config leaves it empty.
const DefaultName = "basic_analyzer"

// Decision thresholds.
const (
	PhishingThreshold = 70
	SpamThreshold     = 40
)

// Analyzer is the rule-based pattern analyzer. It is immutable after
// construction and safe for concurrent use.
type Analyzer struct {
	name       string
	categories []*category

	urgencyWords *regexp.Regexp
	moneyWords   *regexp.Regexp
}

// assessment is the intermediate result of scoring one text.
type assessment struct {
	score   int
	factors []string
}

// New creates a rule-based analyzer. A nil config yields the builtin rule set.
// It fails only when an operator-supplied extra pattern does not compile.
func New(cfg *config.RulesConfig) (*Analyzer, error) {
	if cfg == nil {
		cfg = &config.RulesConfig{}
	}

	name := cfg.Name
	if name == "" {
		name = DefaultName
	}

	a := &Analyzer{
		name:         name,
		urgencyWords: regexp.MustCompile(urgencyWordsPattern),
		moneyWords:   regexp.MustCompile(moneyWordsPattern),
	}

	specs := []struct {
		name    string
		weight  int
		factor  string
		builtin []string
		extra   []string
	}{
		{CategoryUrgency, WeightUrgency, "Urgency indicators detected", urgencyPatterns, cfg.ExtraPatterns.Urgency},
		{CategoryFinancial, WeightFinancial, "Financial request detected", financialPatterns, cfg.ExtraPatterns.Financial},
		{CategoryPersonalInfo, WeightPersonalInfo, "Personal information request detected", personalInfoPatterns, cfg.ExtraPatterns.PersonalInfo},
		{CategorySuspiciousDomain, WeightSuspiciousDomain, "Suspicious domain detected", suspiciousDomainPatterns, cfg.ExtraPatterns.SuspiciousDomain},
	}

	for _, s := range specs {
		patterns, err := compileAll(s.name, s.builtin, s.extra)
		if err != nil {
			return nil, err
		}
		a.categories = append(a.categories, &category{
			name:     s.name,
			weight:   s.weight,
			factor:   s.factor,
			patterns: patterns,
		})
	}

	return a, nil
}

// Name returns the analyzer name.
func (a *Analyzer) Name() string {
	return a.name
}

// Source returns analyzer.SourceRuleBased.
func (a *Analyzer) Source() analyzer.Source {
	return analyzer.SourceRuleBased
}

// Analyze scores text and always returns a result.
func (a *Analyzer) Analyze(_ context.Context, text string) (*analyzer.Result, error) {
	as := a.assess(strings.ToLower(text))
	decision, confidence := Classify(as.score, DefaultThresholds)

	return &analyzer.Result{
		Source:      analyzer.SourceRuleBased,
		Name:        a.name,
		Decision:    decision,
		Confidence:  confidence,
		Description: describe(as),
	}, nil
}

// assess scores already lower-cased text.
func (a *Analyzer) assess(lower string) assessment {
	var as assessment

	for _, c := range a.categories {
		if c.matches(lower) {
			as.score += c.weight
			as.factors = append(as.factors, c.factor)
		}
	}

	if n := len(a.urgencyWords.FindAllStringIndex(lower, -1)); n > 0 {
		as.score += n * UrgencyWordWeight
		as.factors = append(as.factors, fmt.Sprintf("%d urgency indicators", n))
	}

	if n := len(a.moneyWords.FindAllStringIndex(lower, -1)); n > 0 {
		as.score += n * MoneyWordWeight
		as.factors = append(as.factors, fmt.Sprintf("%d financial indicators", n))
	}

	return as
}

// Thresholds are the minimum scores for the phishing and spam decisions.
type Thresholds struct {
	Phishing int
	Spam     int
}

// DefaultThresholds are the builtin decision thresholds.
var DefaultThresholds = Thresholds{Phishing: PhishingThreshold, Spam: SpamThreshold}

// SafeConfidence is the confidence of every safe verdict.
const SafeConfidence = 0.6

// Classify maps a risk score to a decision and confidence. Thresholds are
// checked from the highest down. Phishing confidence is score/100 capped at
// 0.95 and spam confidence is score/t.Phishing capped at 0.85.
func Classify(score int, t Thresholds) (analyzer.Decision, float64) {
	s := float64(score)
	switch {
	case score >= t.Phishing:
		return analyzer.DecisionPhishing, math.Min(s/100, 0.95)
	case score >= t.Spam:
		return analyzer.DecisionSpam, math.Min(s/float64(t.Phishing), 0.85)
	default:
		return analyzer.DecisionSafe, SafeConfidence
	}
}

func describe(as assessment) string {
	factors := "No suspicious patterns detected"
	if len(as.factors) > 0 {
		factors = strings.Join(as.factors, ", ")
	}
	return fmt.Sprintf("Risk score: %d/100. Factors: %s", as.score, factors)
}
