package sanitize

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"mercator-hq/mailguard/pkg/config"
)

// MinIndicators is the number of distinct email indicators required when
// the content check is enabled.
const MinIndicators = 2

// minContentLength is the shortest text the content check accepts.
const minContentLength = 10

// ValidationError reports why raw input was rejected.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid email text: " + e.Reason
}

var (
	controlChars  = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
	horizontalWS  = regexp.MustCompile(`[ \t]+`)
	blankLineRuns = regexp.MustCompile(`\n\s*\n`)

	indicators = []*regexp.Regexp{
		regexp.MustCompile(`@`),
		regexp.MustCompile(`https?://`),
		regexp.MustCompile(`\b(?:from|to|subject|cc|bcc)\b`),
		regexp.MustCompile(`\b(?:dear|hello|hi|greetings)\b`),
		regexp.MustCompile(`\b(?:sincerely|best|regards|thank you)\b`),
		regexp.MustCompile(`\b(?:click|login|password|account|verify)\b`),
	}
)

// Sanitizer verifies and cleans email text. It is safe for concurrent use.
type Sanitizer struct {
	maxLength      int
	requireContent bool
}

// New creates a sanitizer from the scan configuration. A non-positive
// MaxTextLength falls back to config.DefaultMaxTextLength.
func New(cfg config.ScanConfig) *Sanitizer {
	maxLength := cfg.MaxTextLength
	if maxLength <= 0 {
		maxLength = config.DefaultMaxTextLength
	}
	return &Sanitizer{maxLength: maxLength, requireContent: cfg.RequireEmailContent}
}

// MaxLength returns the maximum accepted length in characters.
func (s *Sanitizer) MaxLength() int { return s.maxLength }

// Sanitize returns the cleaned text or a *ValidationError.
func (s *Sanitizer) Sanitize(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, "�")
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		return "", &ValidationError{Reason: "email text cannot be empty"}
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return "", &ValidationError{Reason: fmt.Sprintf("email text too long (maximum %d characters)", s.maxLength)}
	}

	text = norm.NFKC.String(text)
	text = html.UnescapeString(text)
	text = controlChars.ReplaceAllString(text, "")
	text = horizontalWS.ReplaceAllString(text, " ")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")

	if s.requireContent && !LooksLikeEmail(text) {
		return "", &ValidationError{Reason: "input does not appear to contain email content"}
	}
	return text, nil
}

// CountIndicators returns how many distinct email indicators appear in text,
// matched case-insensitively.
func CountIndicators(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, re := range indicators {
		if re.MatchString(lower) {
			n++
		}
	}
	return n
}

// LooksLikeEmail reports whether text is long enough and carries at least
// MinIndicators email indicators.
func LooksLikeEmail(text string) bool {
	if utf8.RuneCountInString(text) < minContentLength {
		return false
	}
	return CountIndicators(text) >= MinIndicators
}
