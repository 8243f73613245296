package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mindbridge/companion/backend/internal/model/chat"
	"github.com/mindbridge/companion/backend/internal/model/mood"
	"github.com/mindbridge/companion/backend/internal/model/user"
)

// MemoryStore keeps everything in process memory. Suitable for tests and
// local runs without a database file.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	conversations map[string]chat.Conversation
	messages      map[string][]chat.Message
	events        []chat.CrisisEvent
	moods         map[string][]mood.Entry
	checkIns      map[string][]time.Time
	users         map[string]user.User
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           func() time.Time { return time.Now().UTC() },
		conversations: make(map[string]chat.Conversation),
		messages:      make(map[string][]chat.Message),
		moods:         make(map[string][]mood.Entry),
		checkIns:      make(map[string][]time.Time),
		users:         make(map[string]user.User),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// CreateConversation provisions a conversation owned by userID.
func (s *MemoryStore) CreateConversation(_ context.Context, userID string, title *string) (chat.Conversation, error) {
	now := s.now()
	conv := chat.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     cloneString(title),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.messages[conv.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return conv, nil
}

// GetConversation retrieves a conversation by identifier.
func (s *MemoryStore) GetConversation(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, ErrNotFound
	}
	conv.Title = cloneString(conv.Title)
	return conv, nil
}

// ListConversations returns the user's active conversations by recency.
func (s *MemoryStore) ListConversations(_ context.Context, userID string, limit, offset int) ([]chat.Conversation, error) {
	s.mu.RLock()
	list := make([]chat.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.UserID == userID && !conv.IsArchived {
			conv.Title = cloneString(conv.Title)
			list = append(list, conv)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return page(list, limit, offset), nil
}

// TouchConversation bumps the updated timestamp.
func (s *MemoryStore) TouchConversation(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.UpdatedAt = at
	s.conversations[id] = conv
	return nil
}

// SetTitleIfEmpty assigns title unless one is already present.
func (s *MemoryStore) SetTitleIfEmpty(_ context.Context, id, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return false, ErrNotFound
	}
	if conv.HasTitle() {
		return false, nil
	}
	conv.Title = &title
	s.conversations[id] = conv
	return true, nil
}

// ArchiveConversation hides a conversation from listings.
func (s *MemoryStore) ArchiveConversation(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.IsArchived = true
	conv.UpdatedAt = at
	s.conversations[id] = conv
	return nil
}

// RecordConversationMood fills mood at start when empty and always updates mood at end.
func (s *MemoryStore) RecordConversationMood(_ context.Context, id string, rating int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	if conv.MoodAtStart == nil {
		start := rating
		conv.MoodAtStart = &start
	}
	end := rating
	conv.MoodAtEnd = &end
	s.conversations[id] = conv
	return nil
}

// CreateMessage appends a message to its conversation.
func (s *MemoryStore) CreateMessage(_ context.Context, msg chat.Message) (chat.Message, error) {
	if !msg.Role.Valid() {
		return chat.Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return chat.Message{}, ErrNotFound
	}

	msg.ID = uuid.NewString()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	return msg, nil
}

// RecentMessages returns the newest messages in chronological order.
func (s *MemoryStore) RecentMessages(_ context.Context, conversationID string, limit int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := s.messages[conversationID]
	start := 0
	if limit > 0 && len(messages) > limit {
		start = len(messages) - limit
	}
	copied := make([]chat.Message, len(messages)-start)
	copy(copied, messages[start:])
	return copied, nil
}

// ListMessages pages through a conversation in chronological order.
func (s *MemoryStore) ListMessages(_ context.Context, conversationID string, limit, offset int) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]chat.Message, len(s.messages[conversationID]))
	copy(copied, s.messages[conversationID])
	return page(copied, limit, offset), nil
}

// CountMessages reports how many messages a conversation holds.
func (s *MemoryStore) CountMessages(_ context.Context, conversationID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[conversationID]), nil
}

// RecordCrisisEvent appends an audit event.
func (s *MemoryStore) RecordCrisisEvent(_ context.Context, event chat.CrisisEvent) (chat.CrisisEvent, error) {
	event.ID = uuid.NewString()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	event.MessageID = cloneString(event.MessageID)

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return event, nil
}

// ListCrisisEvents returns the user's audit trail, oldest first.
func (s *MemoryStore) ListCrisisEvents(_ context.Context, userID string) ([]chat.CrisisEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]chat.CrisisEvent, 0)
	for _, e := range s.events {
		if e.UserID == userID {
			list = append(list, e)
		}
	}
	return list, nil
}

// RecordMood stores a mood entry.
func (s *MemoryStore) RecordMood(_ context.Context, entry mood.Entry) (mood.Entry, error) {
	entry.ID = uuid.NewString()
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now()
	}
	entry.EmotionTags = append([]string(nil), entry.EmotionTags...)

	s.mu.Lock()
	s.moods[entry.UserID] = append(s.moods[entry.UserID], entry)
	s.mu.Unlock()
	return entry, nil
}

// RecentMoods returns the newest entries first.
func (s *MemoryStore) RecentMoods(_ context.Context, userID string, limit int) ([]mood.Entry, error) {
	s.mu.RLock()
	entries := append([]mood.Entry(nil), s.moods[userID]...)
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RecordedAt.After(entries[j].RecordedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []mood.Entry{}
	}
	return entries, nil
}

// CompleteCheckIn records a completed check-in at the given time.
func (s *MemoryStore) CompleteCheckIn(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	s.checkIns[userID] = append(s.checkIns[userID], at)
	s.mu.Unlock()
	return nil
}

// CheckInDays returns every completion time recorded for the user.
func (s *MemoryStore) CheckInDays(_ context.Context, userID string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]time.Time(nil), s.checkIns[userID]...), nil
}

// UpsertUser creates or replaces a profile.
func (s *MemoryStore) UpsertUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}
	s.users[u.ID] = u
	return u, nil
}

// GetUser looks up a profile.
func (s *MemoryStore) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return user.User{}, ErrNotFound
	}
	return u, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
