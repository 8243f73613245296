package mood

import "time"

// Entry is one recorded mood rating (1-10) with its emotion tags.
type Entry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Rating      int       `json:"rating"`
	EmotionTags []string  `json:"emotionTags"`
	Note        string    `json:"note,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
}

const (
	MinRating = 1
	MaxRating = 10
)

// ValidRating reports whether r lies on the 1-10 scale.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
