// Package mood derives compact behavioral summaries from mood history.
package mood

import (
	"fmt"
	"math"
	"time"

	model "github.com/mindbridge/companion/backend/internal/model/mood"
)

const (
	// MinTrendEntries is the smallest history a trend is computed from.
	MinTrendEntries = 3
	// TrendThreshold is the mean difference that counts as movement.
	TrendThreshold = 1.0
)

// Direction describes where recent ratings are heading.
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Steady    Direction = "steady"
)

// Trend is the split-half comparison of recent ratings.
type Trend struct {
	Direction Direction `json:"direction"`
	// Mean is the overall mean rounded to one decimal; set for steady trends.
	Mean *float64 `json:"mean,omitempty"`
}

// Describe renders the trend for prompt text.
func (t Trend) Describe() string {
	switch t.Direction {
	case Improving:
		return "improving recently"
	case Declining:
		return "declining recently"
	default:
		if t.Mean != nil {
			return fmt.Sprintf("fairly steady (around %.1f/10)", *t.Mean)
		}
		return "fairly steady"
	}
}

// ComputeTrend compares the mean of the earlier half of entries with the mean
// of the later half. entries must be ordered newest first, as stores return
// them. With fewer than MinTrendEntries entries it returns nil.
func ComputeTrend(entries []model.Entry) *Trend {
	n := len(entries)
	if n < MinTrendEntries {
		return nil
	}

	ratings := make([]float64, n)
	for i, e := range entries {
		// reverse into oldest -> newest
		ratings[n-1-i] = float64(e.Rating)
	}

	// odd counts give the extra entry to the more recent half
	earlierLen := n / 2
	earlier := mean(ratings[:earlierLen])
	later := mean(ratings[earlierLen:])
	diff := later - earlier

	switch {
	case diff > TrendThreshold:
		return &Trend{Direction: Improving}
	case diff < -TrendThreshold:
		return &Trend{Direction: Declining}
	default:
		overall := math.Round(mean(ratings)*10) / 10
		return &Trend{Direction: Steady, Mean: &overall}
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// RecentEmotions returns the distinct emotion tags of entries in order of
// first appearance, capped at limit.
func RecentEmotions(entries []model.Entry, limit int) []string {
	emotions := make([]string, 0, limit)
	seen := make(map[string]struct{})
	for _, e := range entries {
		for _, tag := range e.EmotionTags {
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			if len(emotions) >= limit {
				return emotions
			}
			seen[tag] = struct{}{}
			emotions = append(emotions, tag)
		}
	}
	return emotions
}

// TimeOfDay buckets a local hour for phrasing.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 21:
		return "evening"
	default:
		return "late night"
	}
}

// Streak counts consecutive calendar days (UTC) ending at the most recent day
// in days. Duplicates and ordering of the input do not matter.
func Streak(days []time.Time) int {
	if len(days) == 0 {
		return 0
	}

	distinct := make(map[time.Time]struct{}, len(days))
	latest := time.Time{}
	for _, d := range days {
		day := truncateDay(d)
		distinct[day] = struct{}{}
		if day.After(latest) {
			latest = day
		}
	}

	streak := 0
	for day := latest; ; day = day.AddDate(0, 0, -1) {
		if _, ok := distinct[day]; !ok {
			break
		}
		streak++
	}
	return streak
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
