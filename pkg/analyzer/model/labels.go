package model

import (
	"fmt"

	"mercator-hq/mailguard/pkg/analyzer"
	"mercator-hq/mailguard/pkg/config"
)

// Label is one native classifier output and the decision it maps to.
type Label struct {
	Name     string
	Decision analyzer.Decision
}

// LabelSet lists a classifier's labels in native output order.
type LabelSet []Label

// FourWay is the label set of four-class email/URL phishing classifiers.
var FourWay = LabelSet{
	{Name: "legitimate_email", Decision: analyzer.DecisionSafe},
	{Name: "phishing_url", Decision: analyzer.DecisionPhishing},
	{Name: "legitimate_url", Decision: analyzer.DecisionSafe},
	{Name: "phishing_url_alt", Decision: analyzer.DecisionPhishing},
}

// Binary is the label set of two-class phishing classifiers.
var Binary = LabelSet{
	{Name: "legitimate", Decision: analyzer.DecisionSafe},
	{Name: "phishing", Decision: analyzer.DecisionPhishing},
}

// LabelSetFromConfig resolves the label set named by cfg.Labels.
func LabelSetFromConfig(cfg config.ModelConfig) (LabelSet, error) {
	switch cfg.Labels {
	case "", "four_way":
		return FourWay, nil
	case "binary":
		return Binary, nil
	case "custom":
		if len(cfg.CustomLabels) == 0 {
			return nil, fmt.Errorf("model %q: custom label set is empty", cfg.Name)
		}
		set := make(LabelSet, len(cfg.CustomLabels))
		for i, l := range cfg.CustomLabels {
			d := analyzer.Decision(l.Decision)
			if !d.Valid() {
				d = analyzer.DecisionUnknown
			}
			set[i] = Label{Name: l.Name, Decision: d}
		}
		return set, nil
	default:
		return nil, fmt.Errorf("model %q: unknown label set %q", cfg.Name, cfg.Labels)
	}
}
