// Package store persists conversations, messages, crisis audit events and the
// mood history the companion reads.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mindbridge/companion/backend/internal/model/chat"
	"github.com/mindbridge/companion/backend/internal/model/mood"
	"github.com/mindbridge/companion/backend/internal/model/user"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrInvalidRole is returned when a message carries an unknown role.
var ErrInvalidRole = errors.New("invalid message role")

// Conversations manages conversation containers.
type Conversations interface {
	CreateConversation(ctx context.Context, userID string, title *string) (chat.Conversation, error)
	GetConversation(ctx context.Context, id string) (chat.Conversation, error)
	// ListConversations returns non-archived conversations, most recently updated first.
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]chat.Conversation, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error
	// SetTitleIfEmpty sets the title only when none exists and reports whether it did.
	SetTitleIfEmpty(ctx context.Context, id, title string) (bool, error)
	ArchiveConversation(ctx context.Context, id string, at time.Time) error
	// RecordConversationMood sets the mood at start once and overwrites the mood at end.
	RecordConversationMood(ctx context.Context, id string, rating int) error
}

// Messages stores immutable messages.
type Messages interface {
	CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error)
	// RecentMessages returns up to limit of the newest messages, oldest first.
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]chat.Message, error)
	CountMessages(ctx context.Context, conversationID string) (int, error)
}

// CrisisEvents is append-only: there is deliberately no update or delete.
type CrisisEvents interface {
	RecordCrisisEvent(ctx context.Context, event chat.CrisisEvent) (chat.CrisisEvent, error)
	ListCrisisEvents(ctx context.Context, userID string) ([]chat.CrisisEvent, error)
}

// Moods stores mood ratings and completed check-ins.
type Moods interface {
	RecordMood(ctx context.Context, entry mood.Entry) (mood.Entry, error)
	// RecentMoods returns up to limit entries, newest first.
	RecentMoods(ctx context.Context, userID string, limit int) ([]mood.Entry, error)
	CompleteCheckIn(ctx context.Context, userID string, at time.Time) error
	// CheckInDays returns the completion times of the user's check-ins.
	CheckInDays(ctx context.Context, userID string) ([]time.Time, error)
}

// Users stores profile fields.
type Users interface {
	UpsertUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
}

// Store aggregates every repository the service layer needs.
type Store interface {
	Conversations
	Messages
	CrisisEvents
	Moods
	Users
	Close() error
}
