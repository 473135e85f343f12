package overlay

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/response"
	"thumbforge-server/modules/common/utils"
)

const maxOverlayBody = 20 << 20

// TextOverlayRequest - POST /text-overlay 요청
type TextOverlayRequest struct {
	Image       string `json:"image"`
	Text        string `json:"text"`
	Position    string `json:"position"`
	FontPreset  string `json:"font_preset"`
	ColorPreset string `json:"color_preset"`
	FontSize    int    `json:"font_size,omitempty"`
}

// TextOverlayResponse - 오버레이 결과
type TextOverlayResponse struct {
	Image string `json:"image"`
}

// Handler - 오버레이 HTTP 핸들러
type Handler struct {
	compositor *Compositor
}

// NewHandler - 핸들러 생성
func NewHandler(compositor *Compositor) *Handler {
	return &Handler{compositor: compositor}
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/text-overlay", h.HandleTextOverlay).Methods(http.MethodPost)
	r.HandleFunc("/text-overlay/presets", h.HandlePresets).Methods(http.MethodGet)
}

// HandleTextOverlay - 단일 이미지에 캡션 적용
func (h *Handler) HandleTextOverlay(w http.ResponseWriter, r *http.Request) {
	var req TextOverlayRequest
	if err := response.DecodeJSON(w, r, &req, maxOverlayBody); err != nil {
		response.WriteError(w, err, "")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		response.WriteError(w, apperr.Validation("text is required"), "")
		return
	}
	data, _, err := utils.DecodeDataURI(req.Image)
	if err != nil {
		response.WriteError(w, apperr.Validation("image must be a data URI or base64: %v", err), "")
		return
	}

	out, mime, err := h.compositor.Render(data, model.OverlayConfig{
		CaptionText: req.Text,
		Position:    req.Position,
		FontPreset:  req.FontPreset,
		ColorPreset: req.ColorPreset,
		FontSize:    req.FontSize,
	})
	if err != nil {
		response.WriteError(w, apperr.Validation("%v", err), "")
		return
	}
	response.WriteJSON(w, http.StatusOK, TextOverlayResponse{Image: utils.EncodeDataURI(out, mime)})
}

// HandlePresets - 사용 가능한 프리셋 목록
func (h *Handler) HandlePresets(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, Presets())
}
