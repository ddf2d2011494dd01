package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, server *httptest.Server, jobID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?job=" + jobID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, jobID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(jobID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d subscribers for %s, have %d", want, jobID, hub.SubscriberCount(jobID))
}

func TestHubDeliversEventsToJobSubscribers(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialHub(t, server, "job-1")
	defer conn.Close()
	waitForSubscribers(t, hub, "job-1", 1)

	hub.Publish(Event{JobID: "job-1", ArticleID: "article-1", Stage: "generated", Detail: "nanobanana"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}

	assert.Equal(t, got.JobID, "job-1")
	assert.Equal(t, got.ArticleID, "article-1")
	assert.Equal(t, got.Stage, "generated")
	if got.Timestamp == 0 {
		t.Fatal("timestamp must be set on publish")
	}
}

func TestHubIsolatesJobs(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialHub(t, server, "job-a")
	defer conn.Close()
	waitForSubscribers(t, hub, "job-a", 1)

	// Event for a different job must never arrive here.
	hub.Publish(Event{JobID: "job-b", ArticleID: "article-1", Stage: "started"})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var got Event
	if err := conn.ReadJSON(&got); err == nil {
		t.Fatalf("received event for another job: %+v", got)
	}
}

func TestHubSerializesConcurrentPublishes(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialHub(t, server, "job-c")
	defer conn.Close()
	waitForSubscribers(t, hub, "job-c", 1)

	// Batch articles publish from parallel goroutines; the connection allows
	// only one writer at a time, so every event must still arrive intact.
	const publishers = 4
	const perPublisher = 10

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				hub.Publish(Event{JobID: "job-c", ArticleID: "article-1", Stage: "generated"})
			}
		}()
	}
	wg.Wait()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < publishers*perPublisher; i++ {
		var got Event
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		assert.Equal(t, got.JobID, "job-c")
	}
}

func TestHubRequiresJobParameter(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	hub.HandleWS(rec, req)
	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestHubDropsClosedSubscribers(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dialHub(t, server, "job-x")
	waitForSubscribers(t, hub, "job-x", 1)

	conn.Close()
	waitForSubscribers(t, hub, "job-x", 0)
}
