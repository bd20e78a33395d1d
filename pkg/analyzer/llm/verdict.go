package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mercator-hq/mailguard/pkg/analyzer"
)

// Verdict is the structured answer requested from the model.
type Verdict struct {
	Decision   analyzer.Decision
	Confidence float64
	Reason     string
}

// ErrNoVerdict is returned when a reply contains no usable JSON verdict.
var ErrNoVerdict = errors.New("llm reply contains no verdict")

type rawVerdict struct {
	Decision   string   `json:"decision"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

var decisionSynonyms = map[string]analyzer.Decision{
	"safe":       analyzer.DecisionSafe,
	"legitimate": analyzer.DecisionSafe,
	"legit":      analyzer.DecisionSafe,
	"ham":        analyzer.DecisionSafe,
	"benign":     analyzer.DecisionSafe,
	"clean":      analyzer.DecisionSafe,
	"spam":       analyzer.DecisionSpam,
	"junk":       analyzer.DecisionSpam,
	"phishing":   analyzer.DecisionPhishing,
	"phish":      analyzer.DecisionPhishing,
	"malicious":  analyzer.DecisionPhishing,
	"fraud":      analyzer.DecisionPhishing,
	"scam":       analyzer.DecisionPhishing,
	"unknown":    analyzer.DecisionUnknown,
	"uncertain":  analyzer.DecisionUnknown,
}

// ParseVerdict extracts the first JSON object from reply and normalizes it.
// A missing confidence defaults to 0.5.
func ParseVerdict(reply string) (Verdict, error) {
	obj := firstJSONObject(reply)
	if obj == "" {
		return Verdict{}, ErrNoVerdict
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrNoVerdict, err)
	}

	decision, ok := decisionSynonyms[strings.ToLower(strings.TrimSpace(raw.Decision))]
	if !ok {
		return Verdict{}, fmt.Errorf("%w: unrecognized decision %q", ErrNoVerdict, raw.Decision)
	}

	confidence := 0.5
	if raw.Confidence != nil {
		confidence = analyzer.Clamp(*raw.Confidence)
	}

	return Verdict{Decision: decision, Confidence: confidence, Reason: strings.TrimSpace(raw.Reason)}, nil
}

// firstJSONObject returns the first balanced {...} span in s, honoring JSON
// string escapes, or "" if there is none.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false

		for i := start; i < len(s); i++ {
			c := s[i]
			switch {
			case escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}

		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			return ""
		}
		start += next + 1
	}
	return ""
}
