package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindbridge/companion/backend/internal/model/chat"
	"github.com/mindbridge/companion/backend/internal/model/mood"
	"github.com/mindbridge/companion/backend/internal/model/user"
)

// runStoreContract exercises behaviour every Store implementation must share.
func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("conversation lifecycle", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conv, err := s.CreateConversation(ctx, "u1", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, conv.ID)
		assert.False(t, conv.HasTitle())

		got, err := s.GetConversation(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)

		_, err = s.GetConversation(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.TouchConversation(ctx, "missing", time.Now()), ErrNotFound)

		archivedAt := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		require.NoError(t, s.ArchiveConversation(ctx, conv.ID, archivedAt))
		got, err = s.GetConversation(ctx, conv.ID)
		require.NoError(t, err)
		assert.True(t, got.IsArchived)
		assert.True(t, got.UpdatedAt.Equal(archivedAt))

		list, err := s.ListConversations(ctx, "u1", 10, 0)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("list orders by recency", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		first, err := s.CreateConversation(ctx, "u1", nil)
		require.NoError(t, err)
		second, err := s.CreateConversation(ctx, "u1", nil)
		require.NoError(t, err)
		_, err = s.CreateConversation(ctx, "u2", nil)
		require.NoError(t, err)

		base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		require.NoError(t, s.TouchConversation(ctx, second.ID, base))
		require.NoError(t, s.TouchConversation(ctx, first.ID, base.Add(time.Minute)))

		list, err := s.ListConversations(ctx, "u1", 10, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, second.ID, list[1].ID)

		paged, err := s.ListConversations(ctx, "u1", 1, 1)
		require.NoError(t, err)
		require.Len(t, paged, 1)
		assert.Equal(t, second.ID, paged[0].ID)
	})

	t.Run("title is set once", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conv, err := s.CreateConversation(ctx, "u1", nil)
		require.NoError(t, err)

		ok, err := s.SetTitleIfEmpty(ctx, conv.ID, "first")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.SetTitleIfEmpty(ctx, conv.ID, "second")
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.GetConversation(ctx, conv.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Title)
		assert.Equal(t, "first", *got.Title)
	})

	t.Run("messages keep insertion order", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conv, err := s.CreateConversation(ctx, "u1", nil)
		require.NoError(t, err)

		at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		contents := []string{"one", "two", "three", "four"}
		for i, content := range contents {
			role := chat.RoleUser
			if i%2 == 1 {
				role = chat.RoleAssistant
			}
			// identical timestamps must not reorder messages
			_, err := s.CreateMessage(ctx, chat.Message{ConversationID: conv.ID, Role: role, Content: content, CreatedAt: at})
			require.NoError(t, err)
		}

		recent, err := s.RecentMessages(ctx, conv.ID, 2)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "three", recent[0].Content)
		assert.Equal(t, "four", recent[1].Content)

		all, err := s.ListMessages(ctx, conv.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "one", all[0].Content)

		count, err := s.CountMessages(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, count)

		_, err = s.CreateMessage(ctx, chat.Message{ConversationID: "missing", Role: chat.RoleUser, Content: "x"})
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.CreateMessage(ctx, chat.Message{ConversationID: conv.ID, Role: "narrator", Content: "x"})
		assert.ErrorIs(t, err, ErrInvalidRole)
		count, err = s.CountMessages(ctx, conv.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, count)
	})

	t.Run("conversation mood keeps its start", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conv, err := s.CreateConversation(ctx, "u1", nil)
		require.NoError(t, err)

		require.NoError(t, s.RecordConversationMood(ctx, conv.ID, 3))
		require.NoError(t, s.RecordConversationMood(ctx, conv.ID, 7))

		got, err := s.GetConversation(ctx, conv.ID)
		require.NoError(t, err)
		require.NotNil(t, got.MoodAtStart)
		require.NotNil(t, got.MoodAtEnd)
		assert.Equal(t, 3, *got.MoodAtStart)
		assert.Equal(t, 7, *got.MoodAtEnd)

		assert.ErrorIs(t, s.RecordConversationMood(ctx, "missing", 5), ErrNotFound)
	})

	t.Run("crisis events are scoped per user", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		conv, err := s.CreateConversation(ctx, "u1", nil)
		require.NoError(t, err)
		msgID := "m-1"

		_, err = s.RecordCrisisEvent(ctx, chat.CrisisEvent{
			UserID: "u1", ConversationID: conv.ID, MessageID: &msgID,
			Trigger: "keyword", Severity: "high", Pattern: "high.kill_or_end_self",
		})
		require.NoError(t, err)
		_, err = s.RecordCrisisEvent(ctx, chat.CrisisEvent{
			UserID: "u1", ConversationID: conv.ID, Trigger: "model", Severity: "medium",
		})
		require.NoError(t, err)

		events, err := s.ListCrisisEvents(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "keyword", events[0].Trigger)
		require.NotNil(t, events[0].MessageID)
		assert.Equal(t, msgID, *events[0].MessageID)
		assert.Nil(t, events[1].MessageID)

		others, err := s.ListCrisisEvents(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, others)
	})

	t.Run("moods newest first", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		for i, rating := range []int{3, 5, 8} {
			_, err := s.RecordMood(ctx, mood.Entry{
				UserID:      "u1",
				Rating:      rating,
				EmotionTags: []string{"tag"},
				RecordedAt:  base.Add(time.Duration(i) * time.Hour),
			})
			require.NoError(t, err)
		}

		entries, err := s.RecentMoods(ctx, "u1", 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, 8, entries[0].Rating)
		assert.Equal(t, 5, entries[1].Rating)
		assert.Equal(t, []string{"tag"}, entries[0].EmotionTags)

		none, err := s.RecentMoods(ctx, "nobody", 5)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("check-ins and users", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		require.NoError(t, s.CompleteCheckIn(ctx, "u1", at))
		require.NoError(t, s.CompleteCheckIn(ctx, "u1", at.Add(24*time.Hour)))

		days, err := s.CheckInDays(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, days, 2)

		_, err = s.GetUser(ctx, "u1")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.UpsertUser(ctx, user.User{ID: "u1", DisplayName: "Sam"})
		require.NoError(t, err)
		u, err := s.UpsertUser(ctx, user.User{ID: "u1", DisplayName: "Sammy", Timezone: "Europe/Paris"})
		require.NoError(t, err)
		assert.Equal(t, "Sammy", u.DisplayName)
		assert.Equal(t, "Europe/Paris", u.Timezone)

		got, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Sammy", got.DisplayName)
	})
}
