package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mindbridge/companion/backend/internal/model/persona"
	"github.com/mindbridge/companion/backend/pkg/utils"
)

// Handler persona服务的HTTP处理器
type Handler struct {
	personas persona.Store
	activeID string
}

// New 创建persona处理器。activeID 为当前对话使用的persona。
func New(personas persona.Store, activeID string) *Handler {
	return &Handler{
		personas: personas,
		activeID: activeID,
	}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleActivePersona)
	r.Get("/personas", h.handleListPersonas)
}

// handleActivePersona 返回当前生效的persona
func (h *Handler) handleActivePersona(w http.ResponseWriter, r *http.Request) {
	p, ok := persona.Resolve(h.personas, h.activeID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}
