// Package mood records mood check-ins, the data the companion's user context
// is summarised from.
package mood

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	model "github.com/mindbridge/companion/backend/internal/model/mood"
)

const (
	maxTags      = 10
	maxTagLength = 32
	maxNote      = 1000
)

// ErrInvalidCheckIn is wrapped by every validation failure.
var ErrInvalidCheckIn = errors.New("invalid check-in")

// Store is the persistence the service needs.
type Store interface {
	RecordMood(ctx context.Context, entry model.Entry) (model.Entry, error)
	CompleteCheckIn(ctx context.Context, userID string, at time.Time) error
}

// CheckIn is one mood submission.
type CheckIn struct {
	UserID      string
	Rating      int
	EmotionTags []string
	Note        string
}

// Service validates and stores mood check-ins.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the check-in service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger.Named("mood"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record validates and stores a check-in and counts it toward the streak.
func (s *Service) Record(ctx context.Context, in CheckIn) (model.Entry, error) {
	if !model.ValidRating(in.Rating) {
		return model.Entry{}, fmt.Errorf("%w: rating must be between %d and %d", ErrInvalidCheckIn, model.MinRating, model.MaxRating)
	}
	note := strings.TrimSpace(in.Note)
	if len([]rune(note)) > maxNote {
		return model.Entry{}, fmt.Errorf("%w: note must be %d characters or fewer", ErrInvalidCheckIn, maxNote)
	}
	tags, err := normaliseTags(in.EmotionTags)
	if err != nil {
		return model.Entry{}, err
	}

	now := s.now()
	entry, err := s.store.RecordMood(ctx, model.Entry{
		UserID:      in.UserID,
		Rating:      in.Rating,
		EmotionTags: tags,
		Note:        note,
		RecordedAt:  now,
	})
	if err != nil {
		return model.Entry{}, fmt.Errorf("record mood: %w", err)
	}
	if err := s.store.CompleteCheckIn(ctx, in.UserID, now); err != nil {
		return model.Entry{}, fmt.Errorf("complete check-in: %w", err)
	}

	s.logger.Debug("mood recorded", zap.String("userId", in.UserID), zap.Int("rating", in.Rating))
	return entry, nil
}

// normaliseTags lower-cases, trims and de-duplicates tags.
func normaliseTags(raw []string) ([]string, error) {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLength {
			return nil, fmt.Errorf("%w: emotion tag %q is too long", ErrInvalidCheckIn, tag)
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) > maxTags {
		return nil, fmt.Errorf("%w: at most %d emotion tags", ErrInvalidCheckIn, maxTags)
	}
	return tags, nil
}
