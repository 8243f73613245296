package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/mindbridge/companion/backend/internal/model/chat"
)

// GeminiBackend calls the Gemini API through google.golang.org/genai.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini API client. baseURL is optional and only
// overrides the endpoint.
func NewGeminiBackend(ctx context.Context, apiKey, modelName, baseURL string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: modelName}, nil
}

// Name implements Backend.
func (b *GeminiBackend) Name() string { return "gemini" }

// Generate implements Backend.
func (b *GeminiBackend) Generate(ctx context.Context, systemPrompt string, history []Turn, opts GenerateOptions) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := genai.Role(genai.RoleUser)
		if t.Role == chat.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}

	temperature := opts.Temperature
	topP := opts.TopP
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       &temperature,
		TopP:              &topP,
		MaxOutputTokens:   int32(opts.MaxOutputTokens),
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
