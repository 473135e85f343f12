package generate

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbforge-server/modules/common/response"
	"thumbforge-server/modules/synthesis"
)

func newTestRouter(h *harness, synth Synthesizer) *mux.Router {
	router := mux.NewRouter()
	NewHandler(h.build(synth), 4).RegisterRoutes(router)
	return router
}

func post(router *mux.Router, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("X-Request-ID", "req-123")
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleFromPromptDefaults(t *testing.T) {
	h := newHarness(t)
	router := newTestRouter(h, synthesis.NewInvoker(h.backend, synthesis.Options{MaxVariations: 4}))

	rec := post(router, "/generate/from-prompt", `{"prompt":"a cat astronaut"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Images, 4)
	assert.True(t, strings.HasPrefix(body.Images[0], "data:image/png;base64,"))
	assert.Empty(t, body.ThumbnailText)
	assert.Equal(t, "req-123", body.RequestID)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, int32(0), h.overlay.calls.Load())
}

func TestHandleFromURLAppliesOverlayByDefault(t *testing.T) {
	h := newHarness(t)
	router := newTestRouter(h, synthesis.NewInvoker(h.backend, synthesis.Options{MaxVariations: 4}))

	faceData := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("face-bytes"))
	rec := post(router, "/generate/from-url", `{
		"url": "https://youtu.be/dQw4w9WgXcQ",
		"num_variations": 1,
		"face_images": [{"data": "`+faceData+`", "name": "alex"}],
		"text_config": {"position": "top_left", "font_preset": "modern"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Images, 1)
	assert.Equal(t, "BUILT ROBOT COOKS", body.ThumbnailText)
	assert.Equal(t, int32(1), h.overlay.calls.Load())
	assert.Equal(t, "top_left", h.overlay.cfg.Position)
	assert.Equal(t, "modern", h.overlay.cfg.FontPreset)

	require.Len(t, h.backend.requests, 1)
	assert.Equal(t, []byte("face-bytes"), h.backend.requests[0].Faces[0].Data)
}

func TestHandleFromURLOverlayDisabled(t *testing.T) {
	h := newHarness(t)
	router := newTestRouter(h, synthesis.NewInvoker(h.backend, synthesis.Options{MaxVariations: 4}))

	rec := post(router, "/generate/from-url", `{"url":"https://www.youtube.com/shorts/dQw4w9WgXcQ","num_variations":1,"add_text_overlay":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int32(0), h.overlay.calls.Load())
}

func TestHandleGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"malformed body", "/generate/from-prompt", `{`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad locator", "/generate/from-url", `{"url":"not-a-url"}`, http.StatusBadRequest, "INVALID_SOURCE"},
		{"id without url", "/generate/from-url", `{"url":"hello-world"}`, http.StatusBadRequest, "INVALID_SOURCE"},
		{"empty prompt", "/generate/from-prompt", `{"prompt":""}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad face data", "/generate/from-prompt", `{"prompt":"x","face_images":[{"data":"%%%"}]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"too many faces", "/generate/from-prompt", `{"prompt":"x","face_images":[{"data":"a"},{"data":"b"},{"data":"c"},{"data":"d"}]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"too many variations", "/generate/from-prompt", `{"prompt":"x","num_variations":12}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"zero variations", "/generate/from-prompt", `{"prompt":"x","num_variations":0}`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			router := newTestRouter(h, synthesis.NewInvoker(h.backend, synthesis.Options{MaxVariations: 4}))

			rec := post(router, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body response.ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.ErrorCode)
			assert.Equal(t, "req-123", body.RequestID)
			assert.Empty(t, h.backend.requests)
		})
	}
}

func TestHandleGenerateWithoutBackend(t *testing.T) {
	h := newHarness(t)
	router := newTestRouter(h, synthesis.NewInvoker(nil, synthesis.Options{}))

	rec := post(router, "/generate/from-prompt", `{"prompt":"cats"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CONFIGURATION_ERROR", body.ErrorCode)
}
