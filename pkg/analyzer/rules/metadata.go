package rules

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	urlPattern        = regexp.MustCompile(`(?i)https?://`)
	emailAddrPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	attachmentPattern = regexp.MustCompile(`(?i)\b(?:attachment|attached|file)s?\b`)
	capsWordPattern   = regexp.MustCompile(`\b[A-Z]{3,}\b`)
	urgencyCounter    = regexp.MustCompile(urgencyWordsPattern)
	moneyCounter      = regexp.MustCompile(moneyWordsPattern)
)

// Metadata describes surface features of an email body. It accompanies
// scan results but is not itself a classification.
type Metadata struct {
	WordCount            int  `json:"word_count"`
	CharCount            int  `json:"char_count"`
	HasURLs              bool `json:"has_urls"`
	HasEmailAddresses    bool `json:"has_email_addresses"`
	HasAttachments       bool `json:"has_attachments"`
	UrgencyIndicators    int  `json:"urgency_indicators"`
	MoneyIndicators      int  `json:"money_indicators"`
	ExcessivePunctuation bool `json:"excessive_punctuation"`
	ExcessiveCaps        bool `json:"excessive_caps"`
}

// ExtractMetadata computes Metadata for text. Caps detection runs on the
// original casing; everything else is case-insensitive.
func ExtractMetadata(text string) Metadata {
	lower := strings.ToLower(text)

	return Metadata{
		WordCount:            len(strings.Fields(text)),
		CharCount:            utf8.RuneCountInString(text),
		HasURLs:              urlPattern.MatchString(text),
		HasEmailAddresses:    emailAddrPattern.MatchString(text),
		HasAttachments:       attachmentPattern.MatchString(text),
		UrgencyIndicators:    len(urgencyCounter.FindAllStringIndex(lower, -1)),
		MoneyIndicators:      len(moneyCounter.FindAllStringIndex(lower, -1)),
		ExcessivePunctuation: strings.Count(text, "!") > 3 || strings.Count(text, "?") > 3,
		ExcessiveCaps:        len(capsWordPattern.FindAllStringIndex(text, -1)) > 5,
	}
}
