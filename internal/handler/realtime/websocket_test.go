package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindbridge/companion/backend/internal/middleware"
	"github.com/mindbridge/companion/backend/internal/model/persona"
	"github.com/mindbridge/companion/backend/internal/service/ai"
	chatService "github.com/mindbridge/companion/backend/internal/service/chat"
	"github.com/mindbridge/companion/backend/internal/service/usercontext"
	"github.com/mindbridge/companion/backend/internal/store"
)

type fixedBackend struct{}

func (fixedBackend) Name() string { return "fixed" }

func (fixedBackend) Generate(context.Context, string, []ai.Turn, ai.GenerateOptions) (string, error) {
	return "I'm here with you.", nil
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func startServer(t *testing.T, limiter Limiter) (*httptest.Server, *chatService.Service) {
	t.Helper()
	st := store.NewMemoryStore()
	p, _ := persona.NewCatalog(persona.Seed()).FindByID(persona.DefaultID)
	svc := chatService.NewService(chatService.Dependencies{
		Store:     st,
		Context:   usercontext.NewAggregator(st, zap.NewNop()),
		Composer:  ai.NewPromptComposer(p),
		Generator: ai.NewService(fixedBackend{}, ai.ServiceConfig{}, zap.NewNop()),
	}, chatService.Options{})

	r := chi.NewRouter()
	r.Use(middleware.UserID)
	NewWebSocketHandler(svc, limiter, zap.NewNop()).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func dial(t *testing.T, srv *httptest.Server, conversationID, userID string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/conversations/" + conversationID + "?userId=" + userID
	return websocket.DefaultDialer.Dial(url, nil)
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestTextFrameRunsTurn(t *testing.T) {
	srv, svc := startServer(t, nil)
	conv, err := svc.CreateConversation(context.Background(), "u1")
	require.NoError(t, err)

	conn, _, err := dial(t, srv, conv.ID, "u1")
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "result", readFrame(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "rough day"}}))
	frame := readFrame(t, conn)
	require.Equal(t, "result", frame["type"])
	data := frame["data"].(map[string]any)
	msg := data["message"].(map[string]any)
	assert.Equal(t, "I'm here with you.", msg["content"])
	assert.Equal(t, false, data["crisisDetected"])
}

func TestInvalidFramesGetErrors(t *testing.T) {
	srv, svc := startServer(t, nil)
	conv, err := svc.CreateConversation(context.Background(), "u1")
	require.NoError(t, err)

	conn, _, err := dial(t, srv, conv.ID, "u1")
	require.NoError(t, err)
	defer conn.Close()
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audio"}))
	assert.Equal(t, "error", readFrame(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "  "}}))
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Contains(t, frame["data"].(map[string]any)["message"], "empty")
}

func TestRateLimitedFrame(t *testing.T) {
	srv, svc := startServer(t, denyAll{})
	conv, err := svc.CreateConversation(context.Background(), "u1")
	require.NoError(t, err)

	conn, _, err := dial(t, srv, conv.ID, "u1")
	require.NoError(t, err)
	defer conn.Close()
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "hi"}}))
	frame := readFrame(t, conn)
	assert.Equal(t, "error", frame["type"])
	assert.Equal(t, middleware.RateLimitMessage, frame["data"].(map[string]any)["message"])
}

func TestForeignConversationRejectedBeforeUpgrade(t *testing.T) {
	srv, svc := startServer(t, nil)
	conv, err := svc.CreateConversation(context.Background(), "owner")
	require.NoError(t, err)

	_, resp, err := dial(t, srv, conv.ID, "intruder")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
