// Package progress broadcasts per-article batch progress to websocket
// subscribers. Subscribers attach to one job id; events for other jobs are
// never delivered to them.
package progress

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event - one progress update for one article inside a batch job.
type Event struct {
	JobID     string `json:"job_id"`
	ArticleID string `json:"article_id"`
	Stage     string `json:"stage"` // started | generated | persisted | failed
	Detail    string `json:"detail,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// subscriber - one websocket client. All writes go through the send channel
// and writePump; the connection supports only one concurrent writer, and
// batch articles publish from parallel goroutines.
type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// writePump - sole writer for the connection.
func (s *subscriber) writePump() {
	defer s.conn.Close()

	for event := range s.send {
		if err := s.conn.WriteJSON(event); err != nil {
			return
		}
	}
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Hub - job-keyed subscriber registry.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]bool
}

func NewHub() *Hub {
	log.Println("✅ [Progress] Hub initialized")
	return &Hub{
		subscribers: make(map[string]map[*subscriber]bool),
	}
}

// HandleWS - upgrade and subscribe the connection to the job named in the
// `job` query parameter.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job")
	if jobID == "" {
		http.Error(w, "job query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Progress] Websocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan Event, 64)}
	h.subscribe(jobID, sub)
	log.Printf("🔌 [Progress] Subscriber joined job %s", jobID)

	go sub.writePump()

	// Reader loop exists only to detect the close.
	go func() {
		defer func() {
			h.unsubscribe(jobID, sub)
			conn.Close()
			log.Printf("🔌 [Progress] Subscriber left job %s", jobID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Publish - queue an event for every subscriber of its job. Subscribers that
// cannot keep up are dropped rather than blocking the batch.
func (h *Hub) Publish(event Event) {
	event.Timestamp = time.Now().UnixMilli()

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers[event.JobID] {
		select {
		case sub.send <- event:
		default:
			close(sub.send)
			delete(h.subscribers[event.JobID], sub)
		}
	}
	if len(h.subscribers[event.JobID]) == 0 {
		delete(h.subscribers, event.JobID)
	}
}

// SubscriberCount - current subscribers for a job, for status endpoints.
func (h *Hub) SubscriberCount(jobID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[jobID])
}

func (h *Hub) subscribe(jobID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[jobID] == nil {
		h.subscribers[jobID] = make(map[*subscriber]bool)
	}
	h.subscribers[jobID][sub] = true
}

func (h *Hub) unsubscribe(jobID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[jobID][sub] {
		close(sub.send)
		delete(h.subscribers[jobID], sub)
	}
	if len(h.subscribers[jobID]) == 0 {
		delete(h.subscribers, jobID)
	}
}
