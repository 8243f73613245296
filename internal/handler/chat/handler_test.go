package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mindbridge/companion/backend/internal/middleware"
	"github.com/mindbridge/companion/backend/internal/model/persona"
	"github.com/mindbridge/companion/backend/internal/service/ai"
	chatservice "github.com/mindbridge/companion/backend/internal/service/chat"
	"github.com/mindbridge/companion/backend/internal/service/usercontext"
	"github.com/mindbridge/companion/backend/internal/store"
)

type echoBackend struct{}

func (echoBackend) Name() string { return "echo" }

func (echoBackend) Generate(_ context.Context, _ string, history []ai.Turn, _ ai.GenerateOptions) (string, error) {
	return "you said: " + history[len(history)-1].Text, nil
}

func setupRouter(t *testing.T, limiter func(http.Handler) http.Handler) *chi.Mux {
	t.Helper()
	st := store.NewMemoryStore()
	p, _ := persona.NewCatalog(persona.Seed()).FindByID(persona.DefaultID)
	svc := chatservice.NewService(chatservice.Dependencies{
		Store:     st,
		Context:   usercontext.NewAggregator(st, zap.NewNop()),
		Composer:  ai.NewPromptComposer(p),
		Generator: ai.NewService(echoBackend{}, ai.ServiceConfig{}, zap.NewNop()),
	}, chatservice.Options{})

	r := chi.NewRouter()
	r.Use(middleware.UserID)
	New(svc, limiter, zap.NewNop()).RegisterRoutes(r)
	return r
}

func do(t *testing.T, r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, user)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createConversation(t *testing.T, r http.Handler, user string) string {
	t.Helper()
	rec := do(t, r, http.MethodPost, "/conversations", user, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var conv struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	return conv.ID
}

func TestSendMessageResponseShape(t *testing.T) {
	r := setupRouter(t, nil)
	id := createConversation(t, r, "u1")

	rec := do(t, r, http.MethodPost, "/conversations/"+id+"/messages", "u1", map[string]string{"content": "hello there"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	msg := body["message"].(map[string]any)
	assert.Equal(t, "assistant", msg["role"])
	assert.Equal(t, id, msg["conversationId"])
	assert.Equal(t, "you said: hello there", msg["content"])
	assert.Equal(t, false, msg["isCrisisFlagged"])
	assert.Equal(t, false, body["crisisDetected"])
	_, hasResources := body["crisisResources"]
	assert.False(t, hasResources)
}

func TestSendMessageCrisisIncludesResources(t *testing.T) {
	r := setupRouter(t, nil)
	id := createConversation(t, r, "u1")

	rec := do(t, r, http.MethodPost, "/conversations/"+id+"/messages", "u1", map[string]string{"content": "I want to end my life"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		CrisisDetected  bool             `json:"crisisDetected"`
		CrisisResources []map[string]any `json:"crisisResources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.CrisisDetected)
	assert.NotEmpty(t, body.CrisisResources)
}

func TestSendMessageValidation(t *testing.T) {
	r := setupRouter(t, nil)
	id := createConversation(t, r, "u1")

	rec := do(t, r, http.MethodPost, "/conversations/"+id+"/messages", "u1", map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot be empty")

	rec = do(t, r, http.MethodPost, "/conversations/"+id+"/messages", "u1", map[string]string{"content": strings.Repeat("x", 2001)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConversationOwnership(t *testing.T) {
	r := setupRouter(t, nil)
	id := createConversation(t, r, "owner")

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/conversations/"+id, "intruder", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/conversations/"+id+"/messages", "intruder", map[string]string{"content": "hi"}).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/conversations/"+id, "owner", nil).Code)
}

func TestListArchiveAndMessages(t *testing.T) {
	r := setupRouter(t, nil)
	id := createConversation(t, r, "u1")
	do(t, r, http.MethodPost, "/conversations/"+id+"/messages", "u1", map[string]string{"content": "hello"})

	rec := do(t, r, http.MethodGet, "/conversations/"+id+"/messages", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs struct {
		Messages []map[string]any `json:"messages"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs.Messages, 2)
	assert.Equal(t, 2, msgs.Total)

	rec = do(t, r, http.MethodGet, "/conversations/"+id+"/messages?limit=1", "u1", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	assert.Len(t, msgs.Messages, 1)
	assert.Equal(t, 2, msgs.Total)

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/conversations/"+id, "u1", nil).Code)

	rec = do(t, r, http.MethodGet, "/conversations", "u1", nil)
	var list struct {
		Conversations []map[string]any `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Conversations)
}

func TestSendIsRateLimited(t *testing.T) {
	r := setupRouter(t, middleware.NewUserRateLimiter(1).Middleware)
	id := createConversation(t, r, "u1")

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/conversations/"+id+"/messages", "u1", map[string]string{"content": "one"}).Code)
	rec := do(t, r, http.MethodPost, "/conversations/"+id+"/messages", "u1", map[string]string{"content": "two"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "try again")
}

func TestStatusForStorageFailure(t *testing.T) {
	status, msg := StatusFor(&chatservice.StorageError{Op: "x", Err: assert.AnError})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, StorageFailureMessage, msg)
	assert.NotContains(t, msg, assert.AnError.Error())
}
