package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mindbridge/companion/backend/internal/model/chat"
)

// OpenAIBackend talks to any OpenAI-compatible endpoint (OpenAI, Ollama,
// vLLM) via langchaingo.
type OpenAIBackend struct {
	llm llms.Model
}

// NewOpenAIBackend builds the langchaingo client. Local endpoints usually
// accept any token, so a placeholder is used when none is configured.
func NewOpenAIBackend(apiKey, baseURL, modelName string) (*OpenAIBackend, error) {
	if apiKey == "" {
		apiKey = "local"
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(modelName),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIBackend{llm: llm}, nil
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return "openai" }

// Generate implements Backend.
func (b *OpenAIBackend) Generate(ctx context.Context, systemPrompt string, history []Turn, opts GenerateOptions) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	for _, t := range history {
		msgType := llms.ChatMessageTypeHuman
		if t.Role == chat.RoleAssistant {
			msgType = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(msgType, t.Text))
	}

	resp, err := b.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(float64(opts.Temperature)),
		llms.WithTopP(float64(opts.TopP)),
		llms.WithMaxTokens(opts.MaxOutputTokens),
	)
	if err != nil {
		return "", fmt.Errorf("openai generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}
