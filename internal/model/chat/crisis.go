package chat

import "time"

// CrisisEvent is an append-only audit row written whenever a medium or high
// severity detection happens, whether from the keyword screen or the model.
type CrisisEvent struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	MessageID      *string   `json:"messageId,omitempty"`
	Trigger        string    `json:"trigger"`
	Severity       string    `json:"severity"`
	Pattern        string    `json:"pattern,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
