// Package sanitize verifies and normalizes raw email text before it is
// handed to analyzers.
//
// Sanitize trims, bounds the length, applies NFKC normalization, decodes
// HTML entities, strips control characters (keeping newlines and tabs),
// collapses horizontal whitespace and blank-line runs, and finally checks
// that the text looks like email content. Every rejection is a
// *ValidationError.
package sanitize
