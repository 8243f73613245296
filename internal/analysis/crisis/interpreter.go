package crisis

import (
	"regexp"
	"strings"
)

// Marker is the token the generator is instructed to emit, on its own line,
// when it perceives crisis risk. The prompt composer and Interpret both rely
// on this exact value.
const Marker = "[CRISIS_DETECTED]"

var markerExpr = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(Marker) + `\s*`)

// Interpretation is the sanitized form of a raw generated reply.
type Interpretation struct {
	CleanedText        string
	ModelFlaggedCrisis bool
}

// Interpret strips every marker occurrence from raw and reports whether any
// was present. The marker is expected at line start; occurrences elsewhere are
// stripped and flagged too, so the token never reaches the user.
// CleanedText may be empty, in which case the caller substitutes a fallback.
func Interpret(raw string) Interpretation {
	if !markerExpr.MatchString(raw) {
		return Interpretation{CleanedText: strings.TrimSpace(raw)}
	}
	cleaned := markerExpr.ReplaceAllString(raw, "")
	return Interpretation{
		CleanedText:        strings.TrimSpace(cleaned),
		ModelFlaggedCrisis: true,
	}
}
