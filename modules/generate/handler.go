package generate

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/response"
	"thumbforge-server/modules/common/utils"
	"thumbforge-server/modules/reference"
)

const maxRequestBytes = 64 << 20

// Handler - 썸네일 생성 HTTP 핸들러
type Handler struct {
	orchestrator      *Orchestrator
	defaultVariations int
}

// NewHandler - defaultVariations는 num_variations 생략 시 사용
func NewHandler(orchestrator *Orchestrator, defaultVariations int) *Handler {
	if defaultVariations <= 0 {
		defaultVariations = 4
	}
	return &Handler{orchestrator: orchestrator, defaultVariations: defaultVariations}
}

// FaceImageInput - 업로드 얼굴 사진 (업로드 순서 = 역할 순서)
type FaceImageInput struct {
	Data string `json:"data"`
	Name string `json:"name"`
}

// ReferenceInput - 스타일 참조 썸네일
type ReferenceInput struct {
	Data        string `json:"data"`
	Description string `json:"description"`
}

// TextConfig - 오버레이 옵션
type TextConfig struct {
	Position    string `json:"position"`
	FontPreset  string `json:"font_preset"`
	ColorPreset string `json:"color_preset"`
	FontSize    int    `json:"font_size"`
}

// GenerationOptions - 두 엔드포인트 공통 필드
type GenerationOptions struct {
	TemplateID          string           `json:"template_id"`
	FaceImages          []FaceImageInput `json:"face_images"`
	ReferenceThumbnails []ReferenceInput `json:"reference_thumbnails"`
	NumVariations       *int             `json:"num_variations"`
	AddTextOverlay      *bool            `json:"add_text_overlay"`
	TextConfig          *TextConfig      `json:"text_config"`
	ThumbnailText       string           `json:"thumbnail_text"`
}

// FromURLRequest - POST /generate/from-url
type FromURLRequest struct {
	URL string `json:"url"`
	GenerationOptions
}

// FromPromptRequest - POST /generate/from-prompt
type FromPromptRequest struct {
	Prompt string `json:"prompt"`
	GenerationOptions
}

// GenerateResponse - 생성 결과
type GenerateResponse struct {
	Images           []string `json:"images"`
	PromptUsed       string   `json:"prompt_used"`
	ThumbnailText    string   `json:"thumbnail_text,omitempty"`
	GenerationTimeMs int64    `json:"generation_time_ms"`
	RequestID        string   `json:"request_id"`
}

// RegisterRoutes - 라우트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/generate/from-url", h.HandleFromURL).Methods(http.MethodPost)
	r.HandleFunc("/generate/from-prompt", h.HandleFromPrompt).Methods(http.MethodPost)
}

// HandleFromURL - 영상 URL 기반 생성 (오버레이 기본 on)
func (h *Handler) HandleFromURL(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	w.Header().Set("X-Request-ID", requestID)

	var body FromURLRequest
	if err := response.DecodeJSON(w, r, &body, maxRequestBytes); err != nil {
		response.WriteError(w, err, requestID)
		return
	}
	h.serve(w, r, requestID, model.SourceURL, strings.TrimSpace(body.URL), body.GenerationOptions, true)
}

// HandleFromPrompt - 텍스트 프롬프트 기반 생성 (오버레이 기본 off)
func (h *Handler) HandleFromPrompt(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)
	w.Header().Set("X-Request-ID", requestID)

	var body FromPromptRequest
	if err := response.DecodeJSON(w, r, &body, maxRequestBytes); err != nil {
		response.WriteError(w, err, requestID)
		return
	}
	h.serve(w, r, requestID, model.SourcePrompt, body.Prompt, body.GenerationOptions, false)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, requestID string, kind model.SourceKind, input string, opts GenerationOptions, overlayDefault bool) {
	req, err := h.buildRequest(requestID, kind, input, opts, overlayDefault)
	if err != nil {
		log.Printf("❌ [Generate] Invalid request %s: %v", requestID, err)
		response.WriteError(w, err, requestID)
		return
	}

	result, err := h.orchestrator.Run(r.Context(), req)
	if err != nil {
		response.WriteError(w, err, requestID)
		return
	}

	images := make([]string, len(result.Images))
	for i, img := range result.Images {
		images[i] = utils.EncodeDataURI(img.Data, img.MIMEType)
	}
	response.WriteJSON(w, http.StatusOK, GenerateResponse{
		Images:           images,
		PromptUsed:       result.PromptUsed,
		ThumbnailText:    result.Caption,
		GenerationTimeMs: result.ElapsedMs,
		RequestID:        result.RequestID,
	})
}

// buildRequest - 기본값 적용 및 이미지 디코딩 (개수 검사를 먼저 수행)
func (h *Handler) buildRequest(requestID string, kind model.SourceKind, input string, opts GenerationOptions, overlayDefault bool) (Request, error) {
	if len(opts.FaceImages) > reference.MaxFacePhotos {
		return Request{}, apperr.Validation("at most %d face photos allowed, got %d", reference.MaxFacePhotos, len(opts.FaceImages))
	}
	if len(opts.ReferenceThumbnails) > reference.MaxReferenceImages {
		return Request{}, apperr.Validation("at most %d reference thumbnails allowed, got %d", reference.MaxReferenceImages, len(opts.ReferenceThumbnails))
	}

	req := Request{
		RequestID:      requestID,
		SourceKind:     kind,
		Input:          input,
		TemplateID:     strings.TrimSpace(opts.TemplateID),
		NumVariations:  h.defaultVariations,
		AddTextOverlay: overlayDefault,
		ThumbnailText:  opts.ThumbnailText,
	}
	if opts.NumVariations != nil {
		req.NumVariations = *opts.NumVariations
	}
	if opts.AddTextOverlay != nil {
		req.AddTextOverlay = *opts.AddTextOverlay
	}
	if tc := opts.TextConfig; tc != nil {
		req.Overlay = model.OverlayConfig{
			Position:    tc.Position,
			FontPreset:  tc.FontPreset,
			ColorPreset: tc.ColorPreset,
			FontSize:    tc.FontSize,
		}
	}

	for i, f := range opts.FaceImages {
		data, mime, err := utils.DecodeDataURI(f.Data)
		if err != nil {
			return Request{}, apperr.Validation("face_images[%d]: %v", i, err)
		}
		req.Faces = append(req.Faces, model.FacePhoto{Bytes: data, MIMEType: mime, DisplayName: f.Name})
	}
	for i, ref := range opts.ReferenceThumbnails {
		data, mime, err := utils.DecodeDataURI(ref.Data)
		if err != nil {
			return Request{}, apperr.Validation("reference_thumbnails[%d]: %v", i, err)
		}
		req.References = append(req.References, model.ReferenceImage{Bytes: data, MIMEType: mime, UserDescription: ref.Description})
	}
	return req, nil
}

func requestIDFrom(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" && len(id) <= 64 {
		return id
	}
	return uuid.NewString()
}
