package chat

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mindbridge/companion/backend/internal/middleware"
	"github.com/mindbridge/companion/backend/internal/model/chat"
	chatService "github.com/mindbridge/companion/backend/internal/service/chat"
	"github.com/mindbridge/companion/backend/pkg/utils"
)

// StorageFailureMessage 持久化失败时返回给用户的提示
const StorageFailureMessage = "Something went wrong on our end. Your data is safe, please try again."

// ConversationService 处理器依赖的对话服务接口
type ConversationService interface {
	CreateConversation(ctx context.Context, userID string) (chat.Conversation, error)
	ListConversations(ctx context.Context, userID string, limit, offset int) ([]chat.Conversation, error)
	GetConversation(ctx context.Context, id, userID string) (chat.Conversation, error)
	ListMessages(ctx context.Context, id, userID string, limit, offset int) ([]chat.Message, error)
	CountMessages(ctx context.Context, id, userID string) (int, error)
	ArchiveConversation(ctx context.Context, id, userID string) error
	SendMessage(ctx context.Context, req chatService.SendRequest) (*chatService.TurnResult, error)
}

// Handler 会话与消息的HTTP处理器
type Handler struct {
	chatSvc     ConversationService
	sendLimiter func(http.Handler) http.Handler
	logger      *zap.Logger
}

// New 创建会话处理器。sendLimiter 可为空。
func New(chatSvc ConversationService, sendLimiter func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	if sendLimiter == nil {
		sendLimiter = func(next http.Handler) http.Handler { return next }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, sendLimiter: sendLimiter, logger: logger.Named("http.chat")}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{conversationID}", h.handleGet)
		r.Delete("/{conversationID}", h.handleArchive)
		r.Get("/{conversationID}/messages", h.handleListMessages)
		r.With(h.sendLimiter).Post("/{conversationID}/messages", h.handleSend)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.Pagination(r, 20, 100)
	list, err := h.chatSvc.ListConversations(r.Context(), middleware.UserIDFrom(r.Context()), limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"conversations": list})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chatSvc.CreateConversation(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chatSvc.GetConversation(r.Context(), chi.URLParam(r, "conversationID"), middleware.UserIDFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	err := h.chatSvc.ArchiveConversation(r.Context(), chi.URLParam(r, "conversationID"), middleware.UserIDFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit, offset := utils.Pagination(r, 50, 200)
	id, userID := chi.URLParam(r, "conversationID"), middleware.UserIDFrom(r.Context())
	messages, err := h.chatSvc.ListMessages(r.Context(), id, userID, limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	total, err := h.chatSvc.CountMessages(r.Context(), id, userID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages, "total": total})
}

// handleSend 处理一轮对话
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Content string `json:"content"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.chatSvc.SendMessage(r.Context(), chatService.SendRequest{
		ConversationID: chi.URLParam(r, "conversationID"),
		UserID:         middleware.UserIDFrom(r.Context()),
		Content:        payload.Content,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("userId", middleware.UserIDFrom(r.Context())),
			zap.Error(err))
	}
	utils.RespondError(w, status, message)
}

// StatusFor 将服务层错误映射为HTTP状态码与面向用户的提示，内部细节不会返回给客户端。
func StatusFor(err error) (int, string) {
	var verr *chatService.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, chatService.ErrConversationNotFound):
		return http.StatusNotFound, "conversation not found"
	default:
		return http.StatusInternalServerError, StorageFailureMessage
	}
}
