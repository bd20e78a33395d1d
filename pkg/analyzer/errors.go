package analyzer

import (
	"fmt"
	"strconv"
)

// UnavailableError reports that an analyzer's backend could not be
// initialized. Analyzers failing this way are never registered.
type UnavailableError struct {
	// Analyzer is the name of the analyzer that could not be built.
	Analyzer string

	// Reason is a short description of what is missing.
	Reason string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analyzer %q unavailable: %s: %v", e.Analyzer, e.Reason, e.Cause)
	}
	return fmt.Sprintf("analyzer %q unavailable: %s", e.Analyzer, e.Reason)
}

// Unwrap returns the underlying error for error chain support.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// NewUnavailableError creates an UnavailableError.
func NewUnavailableError(name, reason string, cause error) *UnavailableError {
	return &UnavailableError{
		Analyzer: name,
		Reason:   reason,
		Cause:    cause,
	}
}

// InvalidResultError reports a Result that violates the contract.
type InvalidResultError struct {
	Field string
	Value string
}

// Error implements the error interface.
func (e *InvalidResultError) Error() string {
	return fmt.Sprintf("invalid result %s: %q", e.Field, e.Value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
