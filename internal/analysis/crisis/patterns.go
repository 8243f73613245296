package crisis

import "regexp"

// Pattern is one tagged expression inside a tier.
type Pattern struct {
	ID   string
	Expr *regexp.Regexp
}

// Tier groups the patterns that share a severity.
type Tier struct {
	Severity Severity
	Patterns []Pattern
}

func p(id, expr string) Pattern {
	return Pattern{ID: id, Expr: regexp.MustCompile(`(?i)` + expr)}
}

// DefaultTiers returns the reviewed pattern table, highest severity first.
// Add patterns here; the orchestrator never needs to change.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Severity: High,
			Patterns: []Pattern{
				p("high.kill_or_end_self", `\b(kill|end)\s+(my\s*self|my\s*life)\b`),
				p("high.suicide", `\bsuicid(e|al)\b`),
				p("high.want_to_die", `\bwant\s+to\s+die\b`),
				p("high.end_it_all", `\bend\s+it\s+all\b`),
				p("high.not_worth_living", `\bnot\s+worth\s+living\b`),
				p("high.better_off", `\bbetter\s+off\s+(dead|without\s+me)\b`),
				p("high.plan_to_harm", `\bplan\s+to\s+(hurt|harm|kill)\b`),
				p("high.no_reason_to_live", `\bno\s+reason\s+to\s+live\b`),
				p("high.saying_goodbye", `\bsay(ing)?\s+goodbye\b`),
			},
		},
		{
			Severity: Medium,
			Patterns: []Pattern{
				p("medium.self_harm", `\bself[\s-]?harm\b`),
				p("medium.cutting_self", `\bcutting\s+(my\s*self|myself)\b`),
				p("medium.hurt_self", `\bhurt\s+(my\s*self|myself)\b`),
				p("medium.dont_want_to_be_here", `\bdon'?t\s+want\s+to\s+be\s+here\b`),
				p("medium.whats_the_point", `\bwhat'?s\s+the\s+point\b`),
				p("medium.give_up", `\bgive\s+up\b`),
				p("medium.cant_go_on", `\bcan'?t\s+(go|keep|do)\s+on\b`),
				p("medium.nobody_cares", `\bnobody\s+(cares|would\s+miss)\b`),
				p("medium.overdose", `\boverdos(e|ing)\b`),
			},
		},
		{
			Severity: Low,
			Patterns: []Pattern{
				p("low.hopeless", `\bhopeless\b`),
				p("low.worthless", `\bworthless\b`),
				p("low.trapped", `\btrapped\b`),
				p("low.burden", `\bburden\b`),
				p("low.disappear", `\bdisappear\b`),
				p("low.empty_inside", `\bempty\s+inside\b`),
			},
		},
	}
}
