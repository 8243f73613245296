package chat

import (
	"context"
	"errors"

	"github.com/mindbridge/companion/backend/internal/model/chat"
	"github.com/mindbridge/companion/backend/internal/store"
)

// CreateConversation opens an empty conversation for userID.
func (s *Service) CreateConversation(ctx context.Context, userID string) (chat.Conversation, error) {
	conv, err := s.store.CreateConversation(ctx, userID, nil)
	if err != nil {
		return chat.Conversation{}, storageFailure("create conversation", err)
	}
	return conv, nil
}

// ListConversations returns the user's active conversations, newest first.
func (s *Service) ListConversations(ctx context.Context, userID string, limit, offset int) ([]chat.Conversation, error) {
	list, err := s.store.ListConversations(ctx, userID, limit, offset)
	if err != nil {
		return nil, storageFailure("list conversations", err)
	}
	return list, nil
}

// GetConversation loads a conversation the user owns.
func (s *Service) GetConversation(ctx context.Context, id, userID string) (chat.Conversation, error) {
	return s.ownedConversation(ctx, id, userID)
}

// ListMessages pages through a conversation the user owns.
func (s *Service) ListMessages(ctx context.Context, id, userID string, limit, offset int) ([]chat.Message, error) {
	if _, err := s.ownedConversation(ctx, id, userID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, id, limit, offset)
	if err != nil {
		return nil, storageFailure("list messages", err)
	}
	return messages, nil
}

// CountMessages reports how many messages a conversation the user owns holds.
func (s *Service) CountMessages(ctx context.Context, id, userID string) (int, error) {
	if _, err := s.ownedConversation(ctx, id, userID); err != nil {
		return 0, err
	}
	n, err := s.store.CountMessages(ctx, id)
	if err != nil {
		return 0, storageFailure("count messages", err)
	}
	return n, nil
}

// ArchiveConversation hides a conversation from listings. Archived
// conversations stay readable and still accept messages.
func (s *Service) ArchiveConversation(ctx context.Context, id, userID string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.ownedConversation(ctx, id, userID); err != nil {
		return err
	}
	if err := s.store.ArchiveConversation(ctx, id, s.now()); err != nil {
		return storageFailure("archive conversation", err)
	}
	return nil
}

func (s *Service) ownedConversation(ctx context.Context, id, userID string) (chat.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return chat.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return chat.Conversation{}, storageFailure("load conversation", err)
	}
	if conv.UserID != userID {
		return chat.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}
