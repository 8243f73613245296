package mood

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mindbridge/companion/backend/internal/middleware"
	model "github.com/mindbridge/companion/backend/internal/model/mood"
	moodService "github.com/mindbridge/companion/backend/internal/service/mood"
	"github.com/mindbridge/companion/backend/pkg/utils"
)

// Recorder 保存心情打卡记录
type Recorder interface {
	Record(ctx context.Context, in moodService.CheckIn) (model.Entry, error)
}

// Handler 心情打卡的HTTP处理器
type Handler struct {
	moods  Recorder
	logger *zap.Logger
}

// New 创建心情打卡处理器
func New(moods Recorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{moods: moods, logger: logger.Named("http.mood")}
}

// RegisterRoutes 注册心情相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/moods", h.handleRecord)
}

type checkInRequest struct {
	Rating      int      `json:"rating"`
	EmotionTags []string `json:"emotionTags"`
	Note        string   `json:"note"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := middleware.UserIDFrom(r.Context())
	entry, err := h.moods.Record(r.Context(), moodService.CheckIn{
		UserID:      userID,
		Rating:      req.Rating,
		EmotionTags: req.EmotionTags,
		Note:        req.Note,
	})
	switch {
	case errors.Is(err, moodService.ErrInvalidCheckIn):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("record mood failed", zap.String("userId", userID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Something went wrong on our end. Your data is safe, please try again.")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, entry)
}
