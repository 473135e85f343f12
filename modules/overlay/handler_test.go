package overlay

import (
	"encoding/json"
	"fmt"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbforge-server/modules/common/utils"
)

func newTestRouter() *mux.Router {
	r := mux.NewRouter()
	NewHandler(NewCompositor("png", 0)).RegisterRoutes(r)
	return r
}

func TestHandleTextOverlay(t *testing.T) {
	img := utils.EncodeDataURI(solidPNG(t, 120, 80, color.White), "image/png")
	body := fmt.Sprintf(`{"image":%q,"text":"wow","color_preset":"yellow_pop"}`, img)

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/text-overlay", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TextOverlayResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Image, "data:image/png;base64,"))
}

func TestHandleTextOverlayValidation(t *testing.T) {
	for _, body := range []string{
		`{"image":"","text":""}`,
		`{"image":"bm90IGFuIGltYWdl","text":"hi"}`,
		`{`,
	} {
		rec := httptest.NewRecorder()
		newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/text-overlay", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHandlePresets(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/text-overlay/presets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var presets map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presets))
	assert.Equal(t, []string{"clean", "dramatic", "impact", "modern"}, presets["fonts"])
	assert.Len(t, presets["positions"], 7)
}
