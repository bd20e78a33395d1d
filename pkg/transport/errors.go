package transport

import (
	"errors"
	"fmt"
	"time"
)

// StatusError represents a non-2xx response from a backend.
type StatusError struct {
	// Backend is the name of the backend that returned the error
	Backend string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the response body or error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("backend %q error (status %d): %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %q error: %s", e.Backend, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *StatusError) Unwrap() error {
	return e.Cause
}

// AuthError represents an authentication failure (HTTP 401 or 403).
type AuthError struct {
	Backend string
	Message string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("backend %q authentication failed: %s", e.Backend, e.Message)
}

// RateLimitError represents a rate limit exceeded error (HTTP 429).
type RateLimitError struct {
	Backend string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("backend %q rate limit exceeded (retry after %s): %s",
			e.Backend, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("backend %q rate limit exceeded: %s", e.Backend, e.Message)
}

// TimeoutError represents a request that exceeded its deadline.
type TimeoutError struct {
	Backend string

	// Timeout is the configured client timeout
	Timeout time.Duration

	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend %q request timeout after %s", e.Backend, e.Timeout)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ParseError represents a response that could not be decoded.
type ParseError struct {
	Backend string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("backend %q response parse error: %v", e.Backend, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is worth retrying later: timeouts, rate
// limits and server-side failures.
func IsRetryable(err error) bool {
	var (
		timeoutErr *TimeoutError
		rateErr    *RateLimitError
		statusErr  *StatusError
	)
	switch {
	case errors.As(err, &timeoutErr), errors.As(err, &rateErr):
		return true
	case errors.As(err, &statusErr):
		return statusErr.StatusCode == 0 || statusErr.StatusCode >= 500
	default:
		return false
	}
}
