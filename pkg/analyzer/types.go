package analyzer

import (
	"context"
	"math"
)

// Decision is the normalized classification label shared by all analyzers.
type Decision string

// Decision values. The set is closed.
const (
	DecisionSafe     Decision = "safe"
	DecisionSpam     Decision = "spam"
	DecisionPhishing Decision = "phishing"
	DecisionUnknown  Decision = "unknown"
)

// Valid reports whether d is one of the four known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionSafe, DecisionSpam, DecisionPhishing, DecisionUnknown:
		return true
	default:
		return false
	}
}

// Decisions returns the closed decision set in a stable order.
func Decisions() []Decision {
	return []Decision{DecisionSafe, DecisionSpam, DecisionPhishing, DecisionUnknown}
}

// Source is the provenance tag of a Result.
type Source string

// Known sources.
const (
	SourceRuleBased  Source = "rule_based"
	SourceModel      Source = "model"
	SourceURLService Source = "url_service"
	SourceLLM        Source = "llm"
	SourceCustom     Source = "custom"
)

// Result is the normalized output of a single analyzer run.
// It is a plain value: it carries no reference to the analyzed text.
type Result struct {
	// Source identifies the kind of backend that produced the result.
	Source Source `json:"model_source"`

	// Name is the stable identifier of the analyzer instance.
	Name string `json:"model_name"`

	// Decision is the classification label.
	Decision Decision `json:"decision"`

	// Confidence is in [0, 1]; higher means more certain of Decision.
	Confidence float64 `json:"confidence"`

	// Description is a human-readable rationale. Diagnostic only.
	Description string `json:"description"`
}

// Validate reports whether r satisfies the result contract.
func (r Result) Validate() error {
	if !r.Decision.Valid() {
		return &InvalidResultError{Field: "decision", Value: string(r.Decision)}
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return &InvalidResultError{Field: "confidence", Value: formatFloat(r.Confidence)}
	}
	return nil
}

// Analyzer is a unit of classification work.
//
// Analyze returns (nil, nil) when the analyzer declines to classify text.
// Implementations must be safe for concurrent use and must not keep state
// between calls.
type Analyzer interface {
	// Name returns the stable identifier of this analyzer instance.
	Name() string

	// Source returns the provenance tag stamped on results.
	Source() Source

	// Analyze classifies text.
	Analyze(ctx context.Context, text string) (*Result, error)
}

// Gate is implemented by analyzers whose backend availability must be
// confirmed before registration. A non-nil error keeps the analyzer out of
// the registry.
type Gate interface {
	Available() error
}

// Clamp limits v to [0, 1]. NaN becomes 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
