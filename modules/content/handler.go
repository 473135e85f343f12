package content

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/response"
)

type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// AnalyzeRequest - 영상 분석 요청
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/analyze-video", h.HandleAnalyze).Methods("POST")
}

// HandleAnalyze - POST /analyze-video
// 영상 메타데이터와 자막만 조회 (이미지 생성 없음)
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	locator := r.URL.Query().Get("url")
	if locator == "" && r.ContentLength != 0 {
		var req AnalyzeRequest
		if err := response.DecodeJSON(w, r, &req, 1<<20); err != nil {
			response.WriteError(w, err, "")
			return
		}
		locator = req.URL
	}

	cc, err := h.resolver.Resolve(r.Context(), model.SourceURL, strings.TrimSpace(locator))
	if err != nil {
		log.Printf("❌ [Content] Analyze failed: %v", err)
		response.WriteError(w, err, "")
		return
	}

	response.WriteJSON(w, http.StatusOK, cc)
}
