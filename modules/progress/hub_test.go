package progress

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbforge-server/modules/common/model"
)

func dial(t *testing.T, srv *httptest.Server, requestID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress?request=" + requestID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	var ev Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func newTestServer(h *Hub) *httptest.Server {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return httptest.NewServer(r)
}

func TestSubscriberReceivesHistoryThenLiveEvents(t *testing.T) {
	h := NewHub()
	srv := newTestServer(h)
	defer srv.Close()

	h.Publish("req-1", model.StageContextResolved, "")
	conn := dial(t, srv, "req-1")

	ev := readEvent(t, conn)
	assert.Equal(t, "stage", ev.Type)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Equal(t, model.StageContextResolved, ev.Stage)

	// 구독 등록 완료까지 대기
	require.Eventually(t, func() bool {
		ch := h.getOrCreate("req-1")
		ch.mutex.Lock()
		defer ch.mutex.Unlock()
		return len(ch.clients) == 1
	}, time.Second, 5*time.Millisecond)

	h.Publish("req-1", model.StageCompleted, "4 images")
	h.Publish("req-2", model.StageFailed, "other request")

	ev = readEvent(t, conn)
	assert.Equal(t, model.StageCompleted, ev.Stage)
	assert.Equal(t, "4 images", ev.Detail)
}

func TestHandleWebSocketRequiresRequestID(t *testing.T) {
	srv := newTestServer(NewHub())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCleanupRemovesFinishedAndExpiredChannels(t *testing.T) {
	h := NewHub()
	h.Publish("done", model.StageCompleted, "")
	h.Publish("running", model.StagePromptComposed, "")

	assert.Equal(t, 0, h.Cleanup(time.Now()))
	assert.Equal(t, 1, h.Cleanup(time.Now().Add(terminalGrace+time.Second)))
	assert.Equal(t, 1, h.Stats().ActiveChannels)
	assert.Equal(t, 1, h.Cleanup(time.Now().Add(maxChannelAge+time.Second)))

	stats := h.Stats()
	assert.Equal(t, 0, stats.ActiveChannels)
	assert.Equal(t, 2, stats.TotalChannels)
	assert.Equal(t, 2, stats.EventsPublished)
}
