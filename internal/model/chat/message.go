package chat

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is one immutable utterance within a conversation. The crisis flag is
// decided when the message is created and never patched afterwards.
type Message struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversationId"`
	Role            Role      `json:"role"`
	Content         string    `json:"content"`
	IsCrisisFlagged bool      `json:"isCrisisFlagged"`
	CreatedAt       time.Time `json:"createdAt"`
}
