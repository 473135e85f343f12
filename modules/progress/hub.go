package progress

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/response"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	sendBuffer      = 64
	terminalGrace   = 5 * time.Minute
	maxChannelAge   = time.Hour
	cleanupInterval = time.Minute
	writeWait       = 10 * time.Second
)

// Event - 단계 전환 이벤트
type Event struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id"`
	Stage     model.Stage `json:"stage"`
	Detail    string      `json:"detail,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// 구독 클라이언트
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// 요청별 채널 (이벤트 기록 + 구독자)
type channel struct {
	id           string
	clients      map[*client]struct{}
	history      [][]byte
	createdAt    time.Time
	lastActivity time.Time
	finishedAt   time.Time
	mutex        sync.Mutex
}

// Stats - 허브 상태
type Stats struct {
	ActiveChannels   int       `json:"activeChannels"`
	TotalChannels    int       `json:"totalChannels"`
	TotalConnections int       `json:"totalConnections"`
	EventsPublished  int       `json:"eventsPublished"`
	StartTime        time.Time `json:"startTime"`
}

// Hub - 요청 ID별 진행 상황 브로드캐스트
type Hub struct {
	channels map[string]*channel
	stats    Stats
	mutex    sync.Mutex
}

// NewHub - 허브 생성
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]*channel),
		stats:    Stats{StartTime: time.Now()},
	}
}

// 채널 가져오기 또는 생성
func (h *Hub) getOrCreate(requestID string) *channel {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	ch, exists := h.channels[requestID]
	if !exists {
		now := time.Now()
		ch = &channel{
			id:           requestID,
			clients:      make(map[*client]struct{}),
			createdAt:    now,
			lastActivity: now,
		}
		h.channels[requestID] = ch
		h.stats.TotalChannels++
	}
	return ch
}

// Publish - 단계 전환을 구독자에게 전송하고 기록
func (h *Hub) Publish(requestID string, stage model.Stage, detail string) {
	if requestID == "" {
		return
	}
	msg, err := json.Marshal(Event{
		Type:      "stage",
		RequestID: requestID,
		Stage:     stage,
		Detail:    detail,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.Printf("Error marshaling progress event: %v", err)
		return
	}

	ch := h.getOrCreate(requestID)
	ch.mutex.Lock()
	ch.history = append(ch.history, msg)
	ch.lastActivity = time.Now()
	if stage.IsTerminal() {
		ch.finishedAt = ch.lastActivity
	}
	for c := range ch.clients {
		select {
		case c.send <- msg:
		default:
			// 느린 구독자는 끊음
			close(c.send)
			delete(ch.clients, c)
		}
	}
	ch.mutex.Unlock()

	h.mutex.Lock()
	h.stats.EventsPublished++
	h.mutex.Unlock()
}

// 구독 추가 (이전 이벤트 먼저 재전송)
func (ch *channel) addClient(c *client) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()
	for _, msg := range ch.history {
		select {
		case c.send <- msg:
		default:
		}
	}
	ch.clients[c] = struct{}{}
	ch.lastActivity = time.Now()
}

func (ch *channel) removeClient(c *client) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()
	if _, exists := ch.clients[c]; exists {
		close(c.send)
		delete(ch.clients, c)
		ch.lastActivity = time.Now()
	}
}

// Cleanup - 끝난 지 오래됐거나 너무 오래된 빈 채널 정리
func (h *Hub) Cleanup(now time.Time) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	cleaned := 0
	for id, ch := range h.channels {
		ch.mutex.Lock()
		finished := !ch.finishedAt.IsZero() && now.Sub(ch.finishedAt) > terminalGrace
		expired := now.Sub(ch.createdAt) > maxChannelAge
		if finished || expired {
			for c := range ch.clients {
				close(c.send)
				delete(ch.clients, c)
			}
			delete(h.channels, id)
			cleaned++
		}
		ch.mutex.Unlock()
	}
	if cleaned > 0 {
		log.Printf("🧹 [Progress] Cleaned up %d channel(s) (Active: %d)", cleaned, len(h.channels))
	}
	return cleaned
}

// StartCleanupRoutine - ctx 종료 시까지 주기적 정리
func (h *Hub) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				h.Cleanup(now)
			}
		}
	}()
	log.Printf("🔄 [Progress] Started channel cleanup routine (%v)", cleanupInterval)
}

// Stats - 현재 상태 스냅샷
func (h *Hub) Stats() Stats {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	s := h.stats
	s.ActiveChannels = len(h.channels)
	return s
}

// RegisterRoutes - 라우트 등록
func (h *Hub) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/progress", h.HandleWebSocket)
	r.HandleFunc("/progress/stats", h.HandleStats).Methods(http.MethodGet)
}

// HandleWebSocket - /ws/progress?request=<id>
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	requestID := r.URL.Query().Get("request")
	if requestID == "" {
		http.Error(w, "missing request parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	ch := h.getOrCreate(requestID)
	ch.addClient(c)

	h.mutex.Lock()
	h.stats.TotalConnections++
	h.mutex.Unlock()
	log.Printf("👤 [Progress] Subscriber joined request %s", requestID)

	go c.writePump()
	go c.readPump(ch)
}

// HandleStats - 허브 상태 조회
func (h *Hub) HandleStats(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.Stats())
}

// 클라이언트 메시지는 무시, 연결 종료만 감지
func (c *client) readPump(ch *channel) {
	defer func() {
		ch.removeClient(c)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
