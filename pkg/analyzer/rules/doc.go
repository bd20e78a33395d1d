// Package rules implements the rule-based pattern analyzer.
//
// The analyzer scores lower-cased email text with a fixed weighted model and
// needs no external backend. Unlike every other analyzer it never declines
// to classify: it is the floor of the system and always yields a verdict.
//
// # Scoring
//
// Four pattern categories contribute once each when any of their patterns
// matches:
//
//   - urgency language: +30
//   - financial-request language: +40
//   - personal-information request: +50
//   - suspicious free/short-lived TLD or raw IP link: +60
//
// Two lexicons are then counted occurrence by occurrence: every urgency word
// adds 10 and every money word adds 15. The counts overlap with the category
// weights on purpose; phrase presence and keyword density are separate
// signals.
//
// # Thresholds
//
//	score >= 70        phishing  confidence = min(score/100, 0.95)
//	40 <= score < 70   spam      confidence = min(score/70, 0.85)
//	score < 40         safe      confidence = min(1 - score/40, 0.6)
//
// # Linear-time matching
//
// Patterns are compiled with Go's regexp package (RE2), whose matching time
// is linear in the input length. Gaps between words are bounded so match
// spans stay short even on adversarial input.
//
// # Usage
//
//	a, err := rules.New(&cfg.Analyzers.Rules)
//	if err != nil {
//		return err
//	}
//	result, _ := a.Analyze(ctx, text)
//	fmt.Println(result.Decision, result.Confidence)
package rules
