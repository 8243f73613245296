package chat

import "time"

// Conversation is the mutable container for an ordered message sequence.
// Title is assigned once, from the first user message, and never overwritten.
type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       *string   `json:"title,omitempty"`
	MoodAtStart *int      `json:"moodAtStart,omitempty"`
	MoodAtEnd   *int      `json:"moodAtEnd,omitempty"`
	IsArchived  bool      `json:"isArchived"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasTitle reports whether a title has already been set.
func (c Conversation) HasTitle() bool {
	return c.Title != nil && *c.Title != ""
}
