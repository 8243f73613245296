// Package usercontext assembles the advisory behavioural context that is
// interpolated into the companion's system prompt.
package usercontext

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	moodanalysis "github.com/mindbridge/companion/backend/internal/analysis/mood"
	"github.com/mindbridge/companion/backend/internal/model/mood"
	"github.com/mindbridge/companion/backend/internal/model/user"
	"github.com/mindbridge/companion/backend/internal/store"
)

const (
	// DefaultDisplayName is used when the user has no profile.
	DefaultDisplayName = "Friend"
	// SnapshotLimit bounds how many mood entries feed the summary.
	SnapshotLimit = 5
	// EmotionLimit caps the recent emotion tags.
	EmotionLimit = 5
)

// Source is the read side of the store the aggregator depends on.
type Source interface {
	GetUser(ctx context.Context, id string) (user.User, error)
	RecentMoods(ctx context.Context, userID string, limit int) ([]mood.Entry, error)
	CheckInDays(ctx context.Context, userID string) ([]time.Time, error)
}

// UserContext is what the prompt knows about the user.
type UserContext struct {
	DisplayName    string              `json:"displayName"`
	CurrentMood    *int                `json:"currentMood,omitempty"`
	RecentEmotions []string            `json:"recentEmotions"`
	MoodTrend      *moodanalysis.Trend `json:"moodTrend,omitempty"`
	TimeOfDay      string              `json:"timeOfDay"`
	Streak         int                 `json:"streak"`
}

// Aggregator builds UserContext values.
type Aggregator struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator wires an aggregator over source.
func NewAggregator(source Source, logger *zap.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Aggregator{
		source: source,
		logger: logger.Named("usercontext"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Build never fails: every read error is logged and the affected field falls
// back to its empty value.
func (a *Aggregator) Build(ctx context.Context, userID string) UserContext {
	uc := UserContext{
		DisplayName:    DefaultDisplayName,
		RecentEmotions: []string{},
	}

	loc := time.UTC
	if u, err := a.source.GetUser(ctx, userID); err == nil {
		if u.DisplayName != "" {
			uc.DisplayName = u.DisplayName
		}
		loc = resolveLocation(u.Timezone)
	} else if !errors.Is(err, store.ErrNotFound) {
		a.logger.Warn("load user profile failed", zap.String("userId", userID), zap.Error(err))
	}
	uc.TimeOfDay = moodanalysis.TimeOfDay(a.now().In(loc).Hour())

	entries, err := a.source.RecentMoods(ctx, userID, SnapshotLimit)
	if err != nil {
		a.logger.Warn("load mood history failed", zap.String("userId", userID), zap.Error(err))
		entries = nil
	}
	if len(entries) > 0 {
		current := entries[0].Rating
		uc.CurrentMood = &current
		uc.RecentEmotions = moodanalysis.RecentEmotions(entries, EmotionLimit)
		uc.MoodTrend = moodanalysis.ComputeTrend(entries)
	}

	days, err := a.source.CheckInDays(ctx, userID)
	if err != nil {
		a.logger.Warn("load check-ins failed", zap.String("userId", userID), zap.Error(err))
	} else {
		uc.Streak = moodanalysis.Streak(days)
	}

	return uc
}

func resolveLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
