package crisis

import "sort"

// Classifier screens text against ordered severity tiers. It is pure and safe
// for concurrent use once constructed.
type Classifier struct {
	tiers []Tier
}

// NewClassifier builds a classifier over the given tiers. With no tiers it
// uses DefaultTiers. Tiers are evaluated highest severity first regardless of
// the order supplied.
func NewClassifier(tiers ...Tier) *Classifier {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	ordered := append([]Tier(nil), tiers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return !ordered[j].Severity.AtLeast(ordered[i].Severity)
	})
	return &Classifier{tiers: ordered}
}

var defaultClassifier = NewClassifier()

// Classify screens text with the default tier table.
func Classify(text string) Assessment {
	return defaultClassifier.Classify(text)
}

// Classify returns the assessment of the first tier with any match. Within a
// tier the first matching pattern is reported.
func (c *Classifier) Classify(text string) Assessment {
	if text == "" {
		return Safe
	}
	for _, tier := range c.tiers {
		for _, pattern := range tier.Patterns {
			if pattern.Expr.MatchString(text) {
				return Assessment{
					Detected: true,
					Severity: tier.Severity,
					Trigger:  TriggerKeyword,
					Pattern:  pattern.ID,
				}
			}
		}
	}
	return Safe
}
