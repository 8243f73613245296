package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mindbridge/companion/backend/internal/config"
	"github.com/mindbridge/companion/backend/internal/handler"
	"github.com/mindbridge/companion/backend/internal/model/persona"
	"github.com/mindbridge/companion/backend/internal/safety"
	"github.com/mindbridge/companion/backend/internal/service/ai"
	"github.com/mindbridge/companion/backend/internal/service/chat"
	"github.com/mindbridge/companion/backend/internal/service/mood"
	"github.com/mindbridge/companion/backend/internal/service/usercontext"
	"github.com/mindbridge/companion/backend/internal/store"
)

// app holds the wired process.
type app struct {
	Router   http.Handler
	Provider string
	store    store.Store
}

func (a *app) Close() error {
	return a.store.Close()
}

func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return store.NewMemoryStore(), nil
	case config.StorageSQLite:
		return store.OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func loadSafety(path string, logger *zap.Logger) (safety.Content, error) {
	if path == "" {
		return safety.Default(), nil
	}
	content, err := safety.Load(path)
	if err != nil {
		return safety.Content{}, err
	}
	logger.Info("safety content loaded", zap.String("path", path), zap.String("version", content.Version))
	return content, nil
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	a, err := wire(ctx, cfg, logger, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

func wire(ctx context.Context, cfg *config.Config, logger *zap.Logger, st store.Store) (*app, error) {
	content, err := loadSafety(cfg.Chat.SafetyContentPath, logger)
	if err != nil {
		return nil, err
	}

	personas := persona.NewCatalog(persona.Seed())
	active, ok := persona.Resolve(personas, cfg.Chat.PersonaID)
	if !ok {
		return nil, fmt.Errorf("unknown persona %q", cfg.Chat.PersonaID)
	}

	backend, err := ai.NewBackend(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI backend: %w", err)
	}
	if backend == nil {
		logger.Warn("no AI provider configured, replies will use the fallback message")
	}
	generator := ai.NewService(backend, ai.ServiceConfigFrom(cfg.AI), logger)

	chatSvc := chat.NewService(chat.Dependencies{
		Store:     st,
		Context:   usercontext.NewAggregator(st, logger),
		Composer:  ai.NewPromptComposer(active),
		Generator: generator,
		Safety:    content,
		Logger:    logger,
	}, chat.Options{HistoryLimit: cfg.AI.HistoryLimit})

	router := handler.NewRouter(handler.Dependencies{
		Personas:           personas,
		ActivePersonaID:    active.ID,
		Chat:               chatSvc,
		Moods:              mood.NewService(st, logger),
		RateLimitPerMinute: cfg.Chat.RateLimitPerMinute,
		Logger:             logger,
	})

	return &app{Router: router, Provider: generator.Provider(), store: st}, nil
}
