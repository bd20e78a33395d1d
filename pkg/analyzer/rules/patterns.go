package rules

import (
	"fmt"
	"regexp"
)

// Category weights.
const (
	WeightUrgency          = 30
	WeightFinancial        = 40
	WeightPersonalInfo     = 50
	WeightSuspiciousDomain = 60

	// UrgencyWordWeight is added per urgency word occurrence.
	UrgencyWordWeight = 10

	// MoneyWordWeight is added per money word occurrence.
	MoneyWordWeight = 15
)

// Category names, also used as config keys for extra patterns.
const (
	CategoryUrgency          = "urgency"
	CategoryFinancial        = "financial_request"
	CategoryPersonalInfo     = "personal_info_request"
	CategorySuspiciousDomain = "suspicious_domain"
)

// freeTLDs lists top-level domains that are free or routinely abused for
// short-lived phishing hosts.
const freeTLDs = `tk|ml|ga|cf|gq|xyz|top|zip|click|country|kim|loan|work|rest|cam`

var (
	urgencyPatterns = []string{
		`\b(?:urgent|immediate|asap|emergency|critical)\b`,
		`\bact\s+now\b`,
		`\blimited[\s-]+time\b`,
		`\bexpires?\s+(?:soon|today|tomorrow)\b`,
		`\bfinal\s+(?:notice|warning|reminder)\b`,
		`\bwithin\s+(?:24|48|72)\s+hours\b`,
	}

	financialPatterns = []string{
		`\b(?:bank|account|credit|debit|payment|transfer)\b`,
		`\bwire\s+(?:money|funds|transfer)\b`,
		`\bgift\s+cards?\b`,
		`\binvoice\b.{0,40}\b(?:overdue|unpaid|attached)\b`,
	}

	personalInfoPatterns = []string{
		`\b(?:password|passcode|ssn|pin)\b`,
		`\bsocial\s+security(?:\s+number)?\b`,
		`\bcredit\s+card\b`,
		`\baccount\s+number\b`,
		`\blogin\s+(?:credentials|details)\b`,
		`\b(?:verify|confirm)\s+(?:your\s+)?(?:identity|account|details|information|password)\b`,
	}

	suspiciousDomainPatterns = []string{
		`\bhttps?://[^\s/?#]*\.(?:` + freeTLDs + `)(?:[/:?#\s.,;)>"']|$)`,
		`\bhttps?://\d{1,3}(?:\.\d{1,3}){3}\b`,
	}

	// Occurrence-counted lexicons.
	urgencyWordsPattern = `\b(?:urgent|immediate|asap|emergency|critical)\b`
	moneyWordsPattern   = `\b(?:money|bank|account|credit|debit|payment|transfer|dollar|euro|pound)\b`
)

// category is one independently evaluated pattern group.
type category struct {
	name     string
	weight   int
	factor   string
	patterns []*regexp.Regexp
}

// matches reports whether any pattern of the category matches text.
func (c *category) matches(text string) bool {
	for _, re := range c.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// compileAll compiles builtin patterns followed by operator-supplied extras.
// Extras are compiled case-insensitively since operators may write them in
// any case.
func compileAll(name string, builtin, extra []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(builtin)+len(extra))
	for _, p := range builtin {
		out = append(out, regexp.MustCompile(p))
	}
	for _, p := range extra {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", name, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
