package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"mercator-hq/mailguard/pkg/telemetry/tracing"
)

// unhealthyAfter is the number of consecutive failures that marks a backend
// unhealthy.
const unhealthyAfter = 3

// maxErrorBody bounds how much of an error response is kept in errors.
const maxErrorBody = 4096

// Config configures a Client.
type Config struct {
	// Name identifies the backend in errors and logs.
	Name string

	// BaseURL is prefixed to every request path.
	BaseURL string

	// APIKey is sent as "Authorization: Bearer <key>" when set.
	APIKey string

	// Timeout bounds each attempt. Zero means no client timeout.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffBase is the delay before the first retry; it doubles per
	// attempt. Default: 1s
	BackoffBase time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Health is a snapshot of a backend's observed health.
type Health struct {
	Healthy             bool
	ConsecutiveFailures int
	LastError           error
	LastSuccess         time.Time
	TotalRequests       int64
	FailedRequests      int64
}

// Client performs HTTP requests against a single backend.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger

	mu     sync.RWMutex
	health Health
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// New creates a Client with connection pooling.
func New(cfg Config, opts ...Option) *Client {
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 20
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 10
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Client{
		config: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
				IdleConnTimeout:     cfg.IdleConnTimeout,
				ForceAttemptHTTP2:   true,
			},
			Timeout: cfg.Timeout,
		},
		logger: slog.Default(),
		health: Health{Healthy: true, LastSuccess: time.Now()},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the configured backend name.
func (c *Client) Name() string {
	return c.config.Name
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// IsHealthy reports whether fewer than three consecutive requests failed.
func (c *Client) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health.Healthy
}

// Health returns a snapshot of the backend health.
func (c *Client) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

func (c *Client) record(success bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.health.TotalRequests++
	if success {
		c.health.Healthy = true
		c.health.ConsecutiveFailures = 0
		c.health.LastError = nil
		c.health.LastSuccess = time.Now()
		return
	}

	c.health.FailedRequests++
	c.health.ConsecutiveFailures++
	c.health.LastError = err
	if c.health.ConsecutiveFailures >= unhealthyAfter && c.health.Healthy {
		c.health.Healthy = false
		c.logger.Warn("backend marked unhealthy",
			"backend", c.config.Name,
			"consecutive_failures", c.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// Do sends a request to BaseURL+path. Network failures and 5xx responses are
// retried with exponential backoff; 4xx responses are returned immediately.
// The caller must close the response body.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) (*http.Response, error) {
	url := c.config.BaseURL + path
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * c.config.BackoffBase
			c.logger.Debug("retrying request",
				"backend", c.config.Name,
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, c.timeoutError(ctx.Err())
			case <-timer.C:
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.config.APIKey != "" && req.Header.Get("Authorization") == "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}
		tracing.Inject(ctx, req.Header)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil || isTimeout(err) {
				terr := c.timeoutError(err)
				c.record(false, terr)
				return nil, terr
			}

			lastErr = &StatusError{Backend: c.config.Name, Message: "request failed", Cause: err}
			c.record(false, lastErr)
			c.logger.Warn("request failed, will retry",
				"backend", c.config.Name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			c.record(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			err := &AuthError{Backend: c.config.Name, Message: string(errorBody)}
			c.record(false, err)
			return nil, err

		case resp.StatusCode == http.StatusTooManyRequests:
			err := &RateLimitError{
				Backend:    c.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}
			c.record(false, err)
			return nil, err

		case resp.StatusCode < 500:
			err := &StatusError{Backend: c.config.Name, StatusCode: resp.StatusCode, Message: string(errorBody)}
			c.record(false, err)
			return nil, err

		default:
			lastErr = &StatusError{Backend: c.config.Name, StatusCode: resp.StatusCode, Message: string(errorBody)}
			c.record(false, lastErr)
			c.logger.Warn("request returned error status, will retry",
				"backend", c.config.Name,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return nil, lastErr
}

// DoJSON marshals reqBody (when non-nil), sends the request and decodes the
// response into respBody (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	var body []byte
	if reqBody != nil {
		var err error
		if body, err = json.Marshal(reqBody); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, path, body, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{Backend: c.config.Name, Cause: fmt.Errorf("failed to read response: %w", err)}
	}

	if respBody != nil {
		if len(bytes.TrimSpace(data)) == 0 {
			return &ParseError{Backend: c.config.Name, Cause: errors.New("empty response body")}
		}
		if err := json.Unmarshal(data, respBody); err != nil {
			return &ParseError{
				Backend:     c.config.Name,
				RawResponse: truncate(string(data), maxErrorBody),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) timeoutError(cause error) *TimeoutError {
	return &TimeoutError{Backend: c.config.Name, Timeout: c.config.Timeout, Cause: cause}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseRetryAfter parses the Retry-After header value in either
// delay-seconds or HTTP-date form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
