package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindbridge/companion/backend/internal/analysis/crisis"
	moodanalysis "github.com/mindbridge/companion/backend/internal/analysis/mood"
	"github.com/mindbridge/companion/backend/internal/model/persona"
	"github.com/mindbridge/companion/backend/internal/service/usercontext"
)

func defaultPersona(t *testing.T) persona.Persona {
	t.Helper()
	p, ok := persona.NewCatalog(persona.Seed()).FindByID(persona.DefaultID)
	if !ok {
		t.Fatal("default persona missing")
	}
	return p
}

func TestComposeIncludesRulesAndMarker(t *testing.T) {
	prompt := NewPromptComposer(defaultPersona(t)).Compose(usercontext.UserContext{
		DisplayName: "Friend",
		TimeOfDay:   "evening",
	})

	assert.Contains(t, prompt, "You are Bridge")
	assert.Contains(t, prompt, "Never diagnose")
	assert.Contains(t, prompt, "validate the user's feelings before")
	assert.Contains(t, prompt, crisis.Marker)
	assert.Contains(t, prompt, "Current mood: not shared")
	assert.NotContains(t, prompt, "Mood trend:")
}

func TestComposeInterpolatesContext(t *testing.T) {
	mood := 4
	mean := 4.5
	prompt := NewPromptComposer(defaultPersona(t)).Compose(usercontext.UserContext{
		DisplayName:    "Sam",
		CurrentMood:    &mood,
		RecentEmotions: []string{"anxious", "tired"},
		MoodTrend:      &moodanalysis.Trend{Direction: moodanalysis.Steady, Mean: &mean},
		TimeOfDay:      "late night",
		Streak:         3,
	})

	start := strings.Index(prompt, "--- Context About This User ---")
	end := strings.Index(prompt, "--- End Context ---")
	if start < 0 || end < start {
		t.Fatalf("context section is not delimited:\n%s", prompt)
	}
	section := prompt[start:end]
	assert.Contains(t, section, "Name: Sam")
	assert.Contains(t, section, "Current mood: 4/10")
	assert.Contains(t, section, "Recent emotions: anxious, tired")
	assert.Contains(t, section, "fairly steady (around 4.5/10)")
	assert.Contains(t, section, "Check-in streak: 3 day(s)")
	assert.Contains(t, section, "Time of day: late night")
}

func TestComposeIsPersonaSwappable(t *testing.T) {
	store := persona.NewCatalog(persona.Seed())
	willow, ok := store.FindByID("willow")
	if !ok {
		t.Fatal("willow persona missing")
	}
	prompt := NewPromptComposer(willow).Compose(usercontext.UserContext{DisplayName: "Friend"})
	assert.Contains(t, prompt, "You are Willow")
	assert.Contains(t, prompt, crisis.Marker)
}
