package model

import (
	"context"
	"fmt"
	"math"

	"mercator-hq/mailguard/pkg/analyzer"
)

// Analyzer classifies text with a Backend.
type Analyzer struct {
	name    string
	labels  LabelSet
	backend Backend
}

// New creates an analyzer and performs the backend handshake. It returns an
// *analyzer.UnavailableError when the backend does not answer.
func New(ctx context.Context, name string, labels LabelSet, backend Backend) (*Analyzer, error) {
	if backend == nil {
		return nil, analyzer.NewUnavailableError(name, "no backend configured", nil)
	}
	if len(labels) == 0 {
		return nil, analyzer.NewUnavailableError(name, "empty label set", nil)
	}
	if err := backend.Ping(ctx); err != nil {
		return nil, analyzer.NewUnavailableError(name, "backend handshake failed", err)
	}

	return &Analyzer{name: name, labels: labels, backend: backend}, nil
}

// Name implements analyzer.Analyzer.
func (a *Analyzer) Name() string { return a.name }

// Source implements analyzer.Analyzer.
func (a *Analyzer) Source() analyzer.Source { return analyzer.SourceModel }

// Labels returns the analyzer's label set.
func (a *Analyzer) Labels() LabelSet { return a.labels }

// Analyze implements analyzer.Analyzer. A prediction whose shape does not
// match the label set, or that contains NaN or infinite values, yields no verdict.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*analyzer.Result, error) {
	pred, err := a.backend.Predict(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	if len(pred.Values) != len(a.labels) {
		return nil, nil
	}
	for _, v := range pred.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil
		}
	}

	probs := pred.Values
	if pred.Logits {
		probs = Softmax(pred.Values)
	}

	i := Argmax(probs)
	label := a.labels[i]
	p := analyzer.Clamp(probs[i])

	return &analyzer.Result{
		Source:      analyzer.SourceModel,
		Name:        a.name,
		Decision:    label.Decision,
		Confidence:  p,
		Description: fmt.Sprintf("Predicted %s (p=%.3f)", label.Name, p),
	}, nil
}

// Softmax converts logits to probabilities. It is stable for large inputs.
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxv := math.Inf(-1)
	for _, v := range logits {
		if v > maxv {
			maxv = v
		}
	}

	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxv)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Argmax returns the index of the largest value. Exact ties resolve to the
// lowest index. It returns -1 for an empty slice.
func Argmax(values []float64) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}
