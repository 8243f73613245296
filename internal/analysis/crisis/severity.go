package crisis

// Severity ranks how strongly text indicates self-harm or crisis risk.
type Severity string

const (
	None   Severity = "none"
	Low    Severity = "low"
	Medium Severity = "medium"
	High   Severity = "high"
)

var severityRank = map[Severity]int{
	None:   0,
	Low:    1,
	Medium: 2,
	High:   3,
}

// AtLeast reports whether s ranks at or above other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// Trigger records which detector produced an assessment.
type Trigger string

const (
	TriggerKeyword Trigger = "keyword"
	TriggerModel   Trigger = "model"
)

// Assessment is the transient result of screening a piece of text.
type Assessment struct {
	Detected bool     `json:"detected"`
	Severity Severity `json:"severity"`
	Trigger  Trigger  `json:"trigger,omitempty"`
	// Pattern identifies the matched pattern for audit.
	Pattern string `json:"pattern,omitempty"`
}

// Safe is the assessment returned when nothing matched.
var Safe = Assessment{Detected: false, Severity: None}
