package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/mindbridge/companion/backend/internal/model/chat"
)

// ArkBackend runs generation through an eino chain: chat template followed by
// the Volcengine Ark chat model.
type ArkBackend struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewArkBackend compiles the chain around chatModel.
func NewArkBackend(ctx context.Context, chatModel model.ChatModel) (*ArkBackend, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}
	return &ArkBackend{chain: runnable}, nil
}

// Name implements Backend.
func (b *ArkBackend) Name() string { return "ark" }

// Generate implements Backend.
func (b *ArkBackend) Generate(ctx context.Context, systemPrompt string, history []Turn, opts GenerateOptions) (string, error) {
	input := map[string]any{
		"system":  systemPrompt,
		"history": toSchemaMessages(history),
	}

	response, err := b.chain.Invoke(ctx, input, compose.WithChatModelOption(
		model.WithTemperature(opts.Temperature),
		model.WithTopP(opts.TopP),
		model.WithMaxTokens(opts.MaxOutputTokens),
	))
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	if response == nil {
		return "", nil
	}
	return response.Content, nil
}

func toSchemaMessages(history []Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(t.Text))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(t.Text, nil))
		}
	}
	return messages
}
