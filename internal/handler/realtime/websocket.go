package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatHandler "github.com/mindbridge/companion/backend/internal/handler/chat"
	"github.com/mindbridge/companion/backend/internal/middleware"
	"github.com/mindbridge/companion/backend/internal/model/chat"
	chatService "github.com/mindbridge/companion/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// TurnService WebSocket依赖的对话服务接口
type TurnService interface {
	GetConversation(ctx context.Context, id, userID string) (chat.Conversation, error)
	SendMessage(ctx context.Context, req chatService.SendRequest) (*chatService.TurnResult, error)
}

// Limiter 按用户限制对话频率
type Limiter interface {
	Allow(userID string) bool
}

// WebSocketHandler WebSocket对话处理器
type WebSocketHandler struct {
	chatSvc  TurnService
	limiter  Limiter
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器。limiter 可为空。
func NewWebSocketHandler(chatSvc TurnService, limiter Limiter, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		chatSvc: chatSvc,
		limiter: limiter,
		logger:  logger.Named("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/conversations/{conversationID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	userID := middleware.UserIDFrom(r.Context())

	// 升级前校验会话归属，失败时直接返回404
	if _, err := h.chatSvc.GetConversation(r.Context(), conversationID, userID); err != nil {
		status, message := chatHandler.StatusFor(err)
		http.Error(w, message, status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("conversationId", conversationID), zap.String("userId", userID))
	logger.Debug("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, conn)

	h.send(conn, logger, outgoingMessage{
		Type:           "result",
		ConversationID: conversationID,
		Data:           map[string]any{"type": "connected"},
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "text":
			h.handleText(ctx, conn, logger, conversationID, userID, msg.Data)
		default:
			h.sendError(conn, logger, "unsupported message type: "+msg.Type)
		}
	}
}

func (h *WebSocketHandler) handleText(ctx context.Context, conn *websocket.Conn, logger *zap.Logger, conversationID, userID string, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, logger, "invalid text payload")
		return
	}
	if h.limiter != nil && !h.limiter.Allow(userID) {
		h.sendError(conn, logger, middleware.RateLimitMessage)
		return
	}

	result, err := h.chatSvc.SendMessage(ctx, chatService.SendRequest{
		ConversationID: conversationID,
		UserID:         userID,
		Content:        text.Text,
	})
	if err != nil {
		_, message := chatHandler.StatusFor(err)
		h.sendError(conn, logger, message)
		return
	}

	h.send(conn, logger, outgoingMessage{
		Type:           "result",
		ConversationID: conversationID,
		Data:           result,
	})
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, logger *zap.Logger, message string) {
	h.send(conn, logger, outgoingMessage{
		Type: "error",
		Data: map[string]string{"message": message},
	})
}

func (h *WebSocketHandler) send(conn *websocket.Conn, logger *zap.Logger, msg outgoingMessage) {
	msg.Timestamp = time.Now().Unix()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		logger.Debug("write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
