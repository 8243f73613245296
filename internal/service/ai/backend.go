package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mindbridge/companion/backend/internal/model/chat"
)

// Turn is one entry of conversation history sent to a backend.
type Turn struct {
	Role chat.Role
	Text string
}

// GenerateOptions carries sampling parameters.
type GenerateOptions struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int
}

// Backend is a generative text provider. Implementations make exactly one
// request per call and must honour ctx cancellation.
type Backend interface {
	Generate(ctx context.Context, systemPrompt string, history []Turn, opts GenerateOptions) (string, error)
	Name() string
}

// ServiceConfig bounds every generation call.
type ServiceConfig struct {
	Timeout      time.Duration
	HistoryLimit int
	Options      GenerateOptions
}

const (
	defaultTimeout      = 15 * time.Second
	defaultHistoryLimit = 20
)

// Service applies the timeout, history bound and error classification around
// a Backend. It never retries.
type Service struct {
	backend Backend
	cfg     ServiceConfig
	logger  *zap.Logger
}

// NewService wraps backend. A nil backend is allowed and makes every call fail
// with a backend-5xx error.
func NewService(backend Backend, cfg ServiceConfig, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, cfg: cfg, logger: logger.Named("ai")}
}

// Provider names the configured backend.
func (s *Service) Provider() string {
	if s.backend == nil {
		return "none"
	}
	return s.backend.Name()
}

// Generate returns the raw reply text or a *BackendError.
func (s *Service) Generate(ctx context.Context, systemPrompt string, history []Turn) (string, error) {
	provider := s.Provider()
	if s.backend == nil {
		return "", classify(provider, ErrBackendUnavailable)
	}

	turns := boundHistory(history, s.cfg.HistoryLimit)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	started := time.Now()
	go func() {
		text, err := s.backend.Generate(ctx, systemPrompt, turns, s.cfg.Options)
		done <- result{text: text, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		// the backend ignored cancellation; stop waiting for it
		res = result{err: ctx.Err()}
	}

	if res.err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.err = context.DeadlineExceeded
		}
		be := classify(provider, res.err)
		s.logger.Warn("generation failed",
			zap.String("provider", provider),
			zap.String("kind", string(be.Kind)),
			zap.Int("status", be.Status),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(be.Err))
		return "", be
	}

	s.logger.Debug("generation succeeded",
		zap.String("provider", provider),
		zap.Int("turns", len(turns)),
		zap.Int("length", len(res.text)),
		zap.Duration("elapsed", time.Since(started)))
	return res.text, nil
}

// boundHistory drops system turns and blank entries, then keeps the most
// recent limit turns.
func boundHistory(history []Turn, limit int) []Turn {
	turns := make([]Turn, 0, len(history))
	for _, t := range history {
		if t.Role == chat.RoleSystem || strings.TrimSpace(t.Text) == "" {
			continue
		}
		turns = append(turns, t)
	}
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns
}
