package template

import (
	"net/http"

	"github.com/gorilla/mux"

	"thumbforge-server/modules/common/response"
)

// Handler - 템플릿 HTTP 핸들러
type Handler struct {
	service *Service
}

// NewHandler - 핸들러 생성
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/templates", h.HandleList).Methods(http.MethodGet)
	r.HandleFunc("/templates/{id}", h.HandleGet).Methods(http.MethodGet)
}

// HandleList - GET /templates
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.service.List())
}

// HandleGet - GET /templates/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(mux.Vars(r)["id"])
	if err != nil {
		response.WriteError(w, err, "")
		return
	}
	response.WriteJSON(w, http.StatusOK, t)
}
