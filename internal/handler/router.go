package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mindbridge/companion/backend/internal/handler/chat"
	"github.com/mindbridge/companion/backend/internal/handler/mood"
	"github.com/mindbridge/companion/backend/internal/handler/persona"
	"github.com/mindbridge/companion/backend/internal/handler/realtime"
	middlewarePkg "github.com/mindbridge/companion/backend/internal/middleware"
	personaModel "github.com/mindbridge/companion/backend/internal/model/persona"
	chatService "github.com/mindbridge/companion/backend/internal/service/chat"
	moodService "github.com/mindbridge/companion/backend/internal/service/mood"
	"github.com/mindbridge/companion/backend/pkg/utils"
)

// Dependencies 路由需要的服务依赖
type Dependencies struct {
	Personas        personaModel.Store
	ActivePersonaID string
	Chat            *chatService.Service
	Moods           *moodService.Service
	// RateLimitPerMinute 每个用户每分钟可发送的消息数，0 表示不限流
	RateLimitPerMinute int
	Logger             *zap.Logger
}

// NewRouter 将HTTP路由绑定到核心服务
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	var sendLimiter func(http.Handler) http.Handler
	var wsLimiter realtime.Limiter
	if deps.RateLimitPerMinute > 0 {
		limiter := middlewarePkg.NewUserRateLimiter(deps.RateLimitPerMinute)
		sendLimiter = limiter.Middleware
		wsLimiter = limiter
	}

	// 创建处理器
	personaHandler := persona.New(deps.Personas, deps.ActivePersonaID)
	chatHandler := chat.New(deps.Chat, sendLimiter, logger)
	moodHandler := mood.New(deps.Moods, logger)
	wsHandler := realtime.NewWebSocketHandler(deps.Chat, wsLimiter, logger)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)

		api.Group(func(authed chi.Router) {
			authed.Use(middlewarePkg.UserID)
			chatHandler.RegisterRoutes(authed)
			moodHandler.RegisterRoutes(authed)
			wsHandler.RegisterRoutes(authed)
		})
	})

	return r
}
