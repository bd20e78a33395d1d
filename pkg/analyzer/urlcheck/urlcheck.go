// Package urlcheck implements an analyzer that asks a URL reputation service
// about the first link in an email.
package urlcheck

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/config"
	"mercator-hq/mailguard/pkg/transport"
)

// urlPattern matches http(s) URLs up to the first character that cannot
// appear unescaped in one.
var urlPattern = regexp.MustCompile(`https?://[A-Za-z0-9$\-_@.&+!*(),%/:;=?#~\[\]']+`)

// Verdict is a reputation service answer. Confidence and Description are
// optional.
type Verdict struct {
	Prediction  int      `json:"prediction"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Predictor classifies a single URL. Prediction 1 is phishing, 0 is safe.
type Predictor interface {
	Predict(ctx context.Context, url string) (Verdict, error)
	Ping(ctx context.Context) error
}

// HTTPPredictor calls a reputation service over HTTP.
type HTTPPredictor struct {
	client *transport.Client
}

// NewHTTPPredictor creates a predictor for the service in cfg.
func NewHTTPPredictor(cfg config.URLCheckConfig, opts ...transport.Option) *HTTPPredictor {
	name := cfg.Name
	if name == "" {
		name = config.DefaultURLCheckName
	}
	return &HTTPPredictor{
		client: transport.New(transport.Config{
			Name:       name,
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, opts...),
	}
}

// Predict implements Predictor.
func (p *HTTPPredictor) Predict(ctx context.Context, url string) (Verdict, error) {
	var v Verdict
	err := p.client.DoJSON(ctx, http.MethodPost, "/v1/predict", map[string]string{"url": url}, &v)
	return v, err
}

// Ping implements Predictor. Any 2xx from {base}/health passes.
func (p *HTTPPredictor) Ping(ctx context.Context) error {
	resp, err := p.client.Do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Close releases idle connections.
func (p *HTTPPredictor) Close() error {
	return p.client.Close()
}

// Analyzer classifies email text by the reputation of its first URL.
type Analyzer struct {
	name       string
	confidence float64
	predictor  Predictor
}

// New creates an analyzer after a health handshake with the predictor. It
// returns an *analyzer.UnavailableError when no predictor is configured or
// the handshake fails.
func New(ctx context.Context, cfg config.URLCheckConfig, predictor Predictor) (*Analyzer, error) {
	name := cfg.Name
	if name == "" {
		name = config.DefaultURLCheckName
	}
	if predictor == nil {
		return nil, analyzer.NewUnavailableError(name, "no reputation service configured", nil)
	}
	if err := predictor.Ping(ctx); err != nil {
		return nil, analyzer.NewUnavailableError(name, "reputation service handshake failed", err)
	}
	confidence := cfg.Confidence
	if confidence == 0 {
		confidence = config.DefaultURLCheckConfidence
	}

	return &Analyzer{name: name, confidence: analyzer.Clamp(confidence), predictor: predictor}, nil
}

// Name implements analyzer.Analyzer.
func (a *Analyzer) Name() string { return a.name }

// Source implements analyzer.Analyzer.
func (a *Analyzer) Source() analyzer.Source { return analyzer.SourceURLService }

// Analyze implements analyzer.Analyzer. Text without a URL yields no verdict.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*analyzer.Result, error) {
	url := FirstURL(text)
	if url == "" {
		return nil, nil
	}

	v, err := a.predictor.Predict(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("url reputation lookup: %w", err)
	}

	decision := analyzer.DecisionUnknown
	switch v.Prediction {
	case 1:
		decision = analyzer.DecisionPhishing
	case 0:
		decision = analyzer.DecisionSafe
	}

	confidence := a.confidence
	if v.Confidence != nil {
		confidence = analyzer.Clamp(*v.Confidence)
	}

	description := v.Description
	if description == "" {
		description = "URL analysis result for " + url
	}

	return &analyzer.Result{
		Source:      analyzer.SourceURLService,
		Name:        a.name,
		Decision:    decision,
		Confidence:  confidence,
		Description: description,
	}, nil
}

// FirstURL returns the first http(s) URL in text, or "".
func FirstURL(text string) string {
	return urlPattern.FindString(text)
}
