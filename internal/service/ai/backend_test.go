package ai

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mindbridge/companion/backend/internal/model/chat"
)

type recordingBackend struct {
	reply   string
	err     error
	block   bool
	history []Turn
	opts    GenerateOptions
	calls   int
}

func (b *recordingBackend) Name() string { return "fake" }

func (b *recordingBackend) Generate(ctx context.Context, _ string, history []Turn, opts GenerateOptions) (string, error) {
	b.calls++
	b.history = history
	b.opts = opts
	if b.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return b.reply, b.err
}

func TestServiceBoundsHistoryAndDropsSystemTurns(t *testing.T) {
	backend := &recordingBackend{reply: "ok"}
	svc := NewService(backend, ServiceConfig{HistoryLimit: 2, Options: GenerateOptions{Temperature: 0.5}}, zap.NewNop())

	history := []Turn{
		{Role: chat.RoleUser, Text: "one"},
		{Role: chat.RoleAssistant, Text: "two"},
		{Role: chat.RoleSystem, Text: "folded"},
		{Role: chat.RoleUser, Text: "three"},
	}
	text, err := svc.Generate(context.Background(), "system", history)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	require.Len(t, backend.history, 2)
	assert.Equal(t, "two", backend.history[0].Text)
	assert.Equal(t, "three", backend.history[1].Text)
	assert.Equal(t, float32(0.5), backend.opts.Temperature)
}

func TestServiceTimeout(t *testing.T) {
	backend := &recordingBackend{block: true}
	svc := NewService(backend, ServiceConfig{Timeout: 20 * time.Millisecond}, zap.NewNop())

	_, err := svc.Generate(context.Background(), "system", nil)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindTimeout, be.Kind)
	assert.Equal(t, "fake", be.Provider)
	assert.Equal(t, 1, backend.calls)
}

func TestServiceWithoutBackend(t *testing.T) {
	svc := NewService(nil, ServiceConfig{}, nil)

	_, err := svc.Generate(context.Background(), "system", nil)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, KindBackend5xx, be.Kind)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, "none", svc.Provider())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		kind   ErrorKind
		status int
	}{
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout, 0},
		{"gemini bad request", genai.APIError{Code: 400, Message: "bad"}, KindBackend4xx, 400},
		{"gemini internal", fmt.Errorf("gemini generate content: %w", genai.APIError{Code: 500}), KindBackend5xx, 500},
		{"openai status text", errors.New("API returned unexpected status code: 503: overloaded"), KindBackend5xx, 503},
		{"ark status text", errors.New("[ark] request failed, status code: 429"), KindBackend4xx, 429},
		{"gateway timeout", errors.New("status code: 504"), KindTimeout, 504},
		{"llms rate limit", llms.NewError(llms.ErrCodeRateLimit, "openai", "slow down"), KindBackend4xx, 0},
		{"llms unavailable", llms.NewError(llms.ErrCodeProviderUnavailable, "openai", "down"), KindBackend5xx, 0},
		{"dial failure", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}, KindTransport, 0},
		{"unknown", errors.New("weird"), KindBackend5xx, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			be := classify("p", tc.err)
			assert.Equal(t, tc.kind, be.Kind)
			assert.Equal(t, tc.status, be.Status)
		})
	}
}
