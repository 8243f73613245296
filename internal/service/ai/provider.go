package ai

import (
	"context"
	"fmt"

	"github.com/mindbridge/companion/backend/internal/config"
)

// NewBackend selects the backend named by cfg. It returns (nil, nil) when no
// provider is configured; the Service then answers with its fallback error.
func NewBackend(ctx context.Context, cfg config.AIConfig) (Backend, error) {
	switch provider := cfg.ResolvedProvider(); provider {
	case "":
		return nil, nil
	case config.ProviderArk:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		backend, err := NewArkBackend(ctx, chatModel)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.ProviderGemini:
		backend, err := NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.ProviderOpenAI:
		backend, err := NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", provider)
	}
}

// ServiceConfigFrom maps configuration onto Service bounds.
func ServiceConfigFrom(cfg config.AIConfig) ServiceConfig {
	return ServiceConfig{
		Timeout:      cfg.Timeout,
		HistoryLimit: cfg.HistoryLimit,
		Options: GenerateOptions{
			Temperature:     float32(cfg.Temperature),
			TopP:            float32(cfg.TopP),
			MaxOutputTokens: cfg.MaxTokens,
		},
	}
}
