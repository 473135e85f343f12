package template

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/database"
)

type fakeSource struct {
	rows  []database.TemplateRow
	err   error
	calls atomic.Int32
}

func (f *fakeSource) FetchTemplates() ([]database.TemplateRow, error) {
	f.calls.Add(1)
	return f.rows, f.err
}

func TestListBuiltinsWithoutSource(t *testing.T) {
	s := NewService(nil, time.Minute)
	list := s.List()
	require.Len(t, list, 5)
	assert.Equal(t, "controversy", list[0].ID)
}

func TestListMergesStoreRowsAndCaches(t *testing.T) {
	src := &fakeSource{rows: []database.TemplateRow{
		{ID: "Gaming", Name: "Gaming", SystemPrefix: "[GAMING]"},
		{ID: "tech", Name: "Tech v2", SystemPrefix: "[TECH V2]"},
	}}
	s := NewService(src, time.Minute)

	list := s.List()
	require.Len(t, list, 6)
	s.List()
	assert.Equal(t, int32(1), src.calls.Load())

	tech, err := s.Get("tech")
	require.NoError(t, err)
	assert.Equal(t, "Tech v2", tech.Name)
	gaming, err := s.Get("GAMING")
	require.NoError(t, err)
	assert.Equal(t, "[GAMING]", gaming.Instruction())
}

func TestListFallsBackOnStoreError(t *testing.T) {
	src := &fakeSource{err: errors.New("down")}
	s := NewService(src, time.Minute)

	assert.Len(t, s.List(), 5)
	s.List()
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestGetAndResolveUnknown(t *testing.T) {
	s := NewService(nil, time.Minute)

	_, err := s.Get("nope")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Nil(t, s.Resolve("nope"))
	assert.Nil(t, s.Resolve(""))
	assert.NotNil(t, s.Resolve("mrbeast"))
}

func TestHandlerRoutes(t *testing.T) {
	router := mux.NewRouter()
	NewHandler(NewService(nil, time.Minute)).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 5)
	assert.NotContains(t, list[0], "SystemPrefix")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates/educational", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Educational/Explainer"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
