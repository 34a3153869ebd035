package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/logger"
	"github.com/abrezinsky/galajudge/internal/models"
)

// setupHub starts a hub behind a test server. Requests carrying an
// X-Judge header are treated as that judge's connection, and requests with
// X-Admin as an administrator's.
func setupHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := New(logger.Discard())
	hub.Start()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Judge"); id != "" {
			var judgeID int
			json.Unmarshal([]byte(id), &judgeID)
			r = r.WithContext(auth.WithJudge(r.Context(), judgeID))
		}
		if r.Header.Get("X-Admin") != "" {
			hub.ServeAdminWs(w, r)
			return
		}
		hub.ServeWs(w, r)
	}))
	t.Cleanup(server.Close)
	return hub, server
}

// dial connects a client and consumes the connected greeting
func dial(t *testing.T, server *httptest.Server, judge string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	switch judge {
	case "":
	case "admin":
		header.Set("X-Admin", "1")
	default:
		header.Set("X-Judge", judge)
	}
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	msg := readMessage(t, conn)
	if msg.Type != EventConnected {
		t.Fatalf("expected connected greeting, got %q", msg.Type)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) models.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	return msg
}

// waitForClients polls until the hub has registered n clients
func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew_CreatesHub(t *testing.T) {
	hub := New(logger.Discard())

	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("expected channels to be initialized")
	}
	if hub.ClientCount() != 0 {
		t.Error("expected no clients")
	}
}

func TestHub_BroadcastMessage_NoClients(t *testing.T) {
	hub := New(logger.Discard())
	hub.Start()

	// BroadcastMessage should not block even with no clients
	done := make(chan bool)
	go func() {
		hub.BroadcastMessage("test", map[string]string{"key": "value"})
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Error("BroadcastMessage blocked with no clients")
	}
}

// TestHub_GalaLockReachesEveryone tests that lock events are not filtered
func TestHub_GalaLockReachesEveryone(t *testing.T) {
	hub, server := setupHub(t)
	judge1 := dial(t, server, "1")
	judge2 := dial(t, server, "2")
	waitForClients(t, hub, 2)

	hub.BroadcastGalaLock(7, true)

	for _, conn := range []*websocket.Conn{judge1, judge2} {
		msg := readMessage(t, conn)
		if msg.Type != EventGalaLock {
			t.Fatalf("expected gala_lock, got %q", msg.Type)
		}
		payload := msg.Payload.(map[string]interface{})
		if payload["gala_id"] != float64(7) || payload["locked"] != true {
			t.Errorf("unexpected payload %v", payload)
		}
	}
}

// TestHub_JudgeEventsAreScoped tests that a judge never sees another judge's
// note and submission events, while an admin client sees all of them
func TestHub_JudgeEventsAreScoped(t *testing.T) {
	hub, server := setupHub(t)
	judge1 := dial(t, server, "1")
	judge2 := dial(t, server, "2")
	observer := dial(t, server, "admin")
	waitForClients(t, hub, 3)

	hub.BroadcastNoteSaved(1, 7, 10, 20)
	hub.BroadcastSubmission(2, 7, true)

	msg := readMessage(t, judge1)
	if msg.Type != EventNoteSaved {
		t.Fatalf("judge 1 expected note_saved, got %q", msg.Type)
	}
	if p := msg.Payload.(map[string]interface{}); p["participant_id"] != float64(10) || p["question_id"] != float64(20) {
		t.Errorf("unexpected note payload %v", p)
	}

	msg = readMessage(t, judge2)
	if msg.Type != EventSubmission {
		t.Fatalf("judge 2 expected submission first, got %q", msg.Type)
	}
	if p := msg.Payload.(map[string]interface{}); p["juge_id"] != float64(2) || p["submitted"] != true {
		t.Errorf("unexpected submission payload %v", p)
	}

	if got := readMessage(t, observer).Type; got != EventNoteSaved {
		t.Errorf("admin expected note_saved, got %q", got)
	}
	if got := readMessage(t, observer).Type; got != EventSubmission {
		t.Errorf("admin expected submission, got %q", got)
	}

	// Judge 1 must not receive judge 2's submission; a lock event is next
	hub.BroadcastGalaLock(7, false)
	if got := readMessage(t, judge1).Type; got != EventGalaLock {
		t.Errorf("judge 1 received %q instead of gala_lock", got)
	}
}

// TestHub_AnonymousClientGetsOnlyBroadcasts tests that a connection with no
// judge and no admin session is never sent judge-scoped events
func TestHub_AnonymousClientGetsOnlyBroadcasts(t *testing.T) {
	hub, server := setupHub(t)
	anonymous := dial(t, server, "")
	waitForClients(t, hub, 1)

	hub.BroadcastNoteSaved(1, 7, 10, 20)
	hub.BroadcastSubmission(2, 7, true)
	hub.BroadcastGalaLock(7, true)

	if got := readMessage(t, anonymous).Type; got != EventGalaLock {
		t.Errorf("anonymous client received %q before gala_lock", got)
	}
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, server := setupHub(t)
	conn := dial(t, server, "1")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting after the client left must not block or panic
	hub.BroadcastNoteSaved(1, 1, 1, 1)
}

func TestHub_IgnoresIncomingMessages(t *testing.T) {
	hub, server := setupHub(t)
	conn := dial(t, server, "1")
	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	hub.BroadcastGalaLock(3, true)
	if got := readMessage(t, conn).Type; got != EventGalaLock {
		t.Errorf("expected gala_lock after incoming frames, got %q", got)
	}
	if hub.ClientCount() != 1 {
		t.Error("client dropped after sending messages")
	}
}

func TestServeWs_RejectsPlainHTTP(t *testing.T) {
	hub := New(logger.Discard())
	hub.Start()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	hub.ServeWs(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-upgrade request, got %d", w.Code)
	}
	if hub.ClientCount() != 0 {
		t.Error("expected no client registered")
	}
}

func TestClient_Accepts(t *testing.T) {
	tests := []struct {
		name    string
		client  int
		admin   bool
		target  int
		accepts bool
	}{
		{"broadcast to judge", 3, false, 0, true},
		{"own event", 3, false, 3, true},
		{"other judge's event", 3, false, 4, false},
		{"admin sees all", 0, true, 4, true},
		{"anonymous gets broadcasts", 0, false, 0, true},
		{"anonymous never gets judge events", 0, false, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{judgeID: tt.client, admin: tt.admin}
			if got := c.accepts(tt.target); got != tt.accepts {
				t.Errorf("accepts(%d) = %v, want %v", tt.target, got, tt.accepts)
			}
		})
	}
}
