package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	return env
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return h, srv
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.SessionCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected session count %d, got %d", want, h.SessionCount())
}

func TestEmitDeliversToExactlyOneSession(t *testing.T) {
	h, srv := newTestHub(t)
	connA := dial(t, srv)
	defer connA.Close()
	connB := dial(t, srv)
	defer connB.Close()
	waitForCount(t, h, 2)

	h.mu.RLock()
	var targetID string
	for id := range h.sessions {
		targetID = id
		break
	}
	h.mu.RUnlock()

	h.Emit(targetID, "hello", map[string]string{"msg": "hi"})

	connA.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	connB.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, errA := connA.ReadMessage()
	_, _, errB := connB.ReadMessage()
	if (errA == nil) == (errB == nil) {
		t.Errorf("expected exactly one session to receive the emit, errA=%v errB=%v", errA, errB)
	}
}

func TestBroadcastReachesAllSessions(t *testing.T) {
	h, srv := newTestHub(t)
	connA := dial(t, srv)
	defer connA.Close()
	connB := dial(t, srv)
	defer connB.Close()
	waitForCount(t, h, 2)

	h.Broadcast("ping", map[string]string{})

	envA := readEnvelope(t, connA)
	envB := readEnvelope(t, connB)
	if envA.Event != "ping" || envB.Event != "ping" {
		t.Errorf("expected both sessions to receive ping, got %q and %q", envA.Event, envB.Event)
	}
}

func TestBroadcastExceptSkipsGivenSession(t *testing.T) {
	h, srv := newTestHub(t)
	connA := dial(t, srv)
	defer connA.Close()
	connB := dial(t, srv)
	defer connB.Close()
	waitForCount(t, h, 2)

	h.mu.RLock()
	var exceptID string
	for id := range h.sessions {
		exceptID = id
		break
	}
	h.mu.RUnlock()

	h.BroadcastExcept(exceptID, "joined", map[string]string{})

	// Exactly one of connA/connB should receive the message; read both with
	// a short deadline and assert exactly one succeeds.
	connA.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	connB.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, errA := connA.ReadMessage()
	_, _, errB := connB.ReadMessage()
	if (errA == nil) == (errB == nil) {
		t.Errorf("expected exactly one of the two sessions to receive the broadcast, errA=%v errB=%v", errA, errB)
	}
}

func TestOnConnectAndOnDisconnectFire(t *testing.T) {
	h, srv := newTestHub(t)
	connected := make(chan string, 1)
	disconnected := make(chan string, 1)
	h.OnConnect(func(sessionID string) { connected <- sessionID })
	h.OnDisconnect(func(sessionID string) { disconnected <- sessionID })

	conn := dial(t, srv)
	var id string
	select {
	case id = <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("on_connect never fired")
	}

	conn.Close()
	select {
	case got := <-disconnected:
		if got != id {
			t.Errorf("expected disconnect for %s, got %s", id, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("on_disconnect never fired")
	}
}

func TestHandlerDispatchesToRegisteredEvent(t *testing.T) {
	h, srv := newTestHub(t)
	received := make(chan string, 1)
	h.On("ping", func(sessionID string, data json.RawMessage) {
		received <- string(data)
	})

	conn := dial(t, srv)
	defer conn.Close()
	waitForCount(t, h, 1)

	msg, _ := json.Marshal(envelope{Event: "ping", Data: json.RawMessage(`{"x":1}`)})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case data := <-received:
		if data != `{"x":1}` {
			t.Errorf("expected handler to receive raw payload, got %s", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}
}
