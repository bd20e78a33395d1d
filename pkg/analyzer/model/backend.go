package model

import (
	"context"
	"errors"
	"net/http"

	"mercator-hq/mailguard/pkg/config"
	"mercator-hq/mailguard/pkg/transport"
)

// Prediction is a classifier output in native label order.
type Prediction struct {
	Values []float64

	// Logits is true when Values are unnormalized scores.
	Logits bool
}

// Backend runs a classifier.
type Backend interface {
	Predict(ctx context.Context, text string) (Prediction, error)
	Ping(ctx context.Context) error
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Logits        []float64 `json:"logits"`
	Probabilities []float64 `json:"probabilities"`
}

// HTTPBackend calls an inference server.
type HTTPBackend struct {
	client *transport.Client
}

// NewHTTPBackend creates a backend for the inference server in cfg.
func NewHTTPBackend(cfg config.ModelConfig, opts ...transport.Option) *HTTPBackend {
	return &HTTPBackend{
		client: transport.New(transport.Config{
			Name:       cfg.Name,
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}, opts...),
	}
}

// Predict implements Backend.
func (b *HTTPBackend) Predict(ctx context.Context, text string) (Prediction, error) {
	var resp predictResponse
	if err := b.client.DoJSON(ctx, http.MethodPost, "/predict", predictRequest{Text: text}, &resp); err != nil {
		return Prediction{}, err
	}

	switch {
	case len(resp.Logits) > 0:
		return Prediction{Values: resp.Logits, Logits: true}, nil
	case len(resp.Probabilities) > 0:
		return Prediction{Values: resp.Probabilities}, nil
	default:
		return Prediction{}, &transport.ParseError{
			Backend: b.client.Name(),
			Cause:   errors.New("response has neither logits nor probabilities"),
		}
	}
}

// Ping implements Backend.
func (b *HTTPBackend) Ping(ctx context.Context) error {
	resp, err := b.client.Do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Healthy reports the transport's view of backend health.
func (b *HTTPBackend) Healthy() bool {
	return b.client.IsHealthy()
}

// Close releases idle connections.
func (b *HTTPBackend) Close() error {
	return b.client.Close()
}
