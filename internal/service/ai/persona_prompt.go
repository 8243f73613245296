package ai

import (
	"fmt"
	"strings"

	"github.com/mindbridge/companion/backend/internal/analysis/crisis"
	"github.com/mindbridge/companion/backend/internal/model/persona"
	"github.com/mindbridge/companion/backend/internal/service/usercontext"
)

// safetyRules are not part of the persona and cannot be swapped out with it.
var safetyRules = []string{
	"You are NOT a therapist, counselor, or medical professional. Never claim to be one, and never claim clinical authority.",
	"Never diagnose any condition, and never suggest, name, or comment on medication.",
	"Always validate the user's feelings before offering any reframe or perspective.",
	"Do not invent facts about the user. Only use what they told you and the context below.",
	"If the user mentions self-harm, suicide, wanting to die, or harming others, begin your reply with the line " +
		crisis.Marker + " on its own, before any other content, and then respond with care.",
}

// PromptComposer renders the system prompt for one persona.
type PromptComposer struct {
	persona persona.Persona
}

// NewPromptComposer binds a composer to p.
func NewPromptComposer(p persona.Persona) *PromptComposer {
	return &PromptComposer{persona: p}
}

// Compose renders the full system prompt: persona, safety rules and the
// advisory user context.
func (c *PromptComposer) Compose(uc usercontext.UserContext) string {
	p := c.persona

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s.", p.Name, p.Identity)
	if p.Description != "" {
		b.WriteString(" ")
		b.WriteString(p.Description)
	}
	b.WriteString("\n\n")

	if p.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n\n", p.Tone)
	}

	writeSection(&b, "Personality", p.PersonalityHints)
	writeSection(&b, "Response format", p.ResponseFormat)
	writeSection(&b, "Rules (non-negotiable)", safetyRules)

	b.WriteString("--- Context About This User ---\n")
	fmt.Fprintf(&b, "Name: %s\n", uc.DisplayName)
	if uc.CurrentMood != nil {
		fmt.Fprintf(&b, "Current mood: %d/10\n", *uc.CurrentMood)
	} else {
		b.WriteString("Current mood: not shared\n")
	}
	if len(uc.RecentEmotions) > 0 {
		fmt.Fprintf(&b, "Recent emotions: %s\n", strings.Join(uc.RecentEmotions, ", "))
	}
	if uc.MoodTrend != nil {
		fmt.Fprintf(&b, "Mood trend: %s\n", uc.MoodTrend.Describe())
	}
	if uc.Streak > 0 {
		fmt.Fprintf(&b, "Check-in streak: %d day(s)\n", uc.Streak)
	}
	fmt.Fprintf(&b, "Time of day: %s\n", uc.TimeOfDay)
	b.WriteString("--- End Context ---\n\n")

	b.WriteString("Use this context to personalise your tone, but never quote it back verbatim.")
	return b.String()
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteString(":\n")
	for _, line := range lines {
		b.WriteString("- ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
