// Package transport implements the bidirectional, event-based, room-capable
// adapter spec §4.5 describes: emit to a session, broadcast to everyone,
// broadcast except one session, and inbound intent handlers keyed by event
// name.
package transport

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"minionwar/internal/api"
)

// MaxConnectionsTotal bounds total concurrent sessions.
const MaxConnectionsTotal = 2000

// MaxConnectionsPerIP is the per-IP connection limit NewHub passes to
// api.NewWebSocketRateLimiter.
const MaxConnectionsPerIP = 20

// joinRatePerSecond and joinRateBurst bound how often a single IP may send
// join_game, so a reconnect loop can't hammer the oracle's name-moderation
// call.
const joinRatePerSecond = 0.5
const joinRateBurst = 3

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // spec §6: transport is CORS-permissive, all origins
	},
}

// envelope is the wire shape for every event in both directions:
// {"event": "...", "data": {...}}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type session struct {
	id   string
	ip   string
	conn *websocket.Conn
	send chan []byte
}

// HandlerFunc processes one inbound event's payload for a given session.
type HandlerFunc func(sessionID string, data json.RawMessage)

// ConnectFunc and DisconnectFunc are the on_connect/on_disconnect lifecycle
// callbacks spec §4.5 requires the adapter to expose.
type ConnectFunc func(sessionID string)
type DisconnectFunc func(sessionID string)

// Hub is the connection layer beneath Adapter: it owns every live session, dispatches inbound events
// to registered handlers, and exposes Emit/Broadcast/BroadcastExcept for
// outbound fan-out. Grounded on the teacher's WebSocketHub (register/
// unregister channels, per-IP connection limiting) generalized from an
// anonymous broadcast-only hub to session-addressable rooms, since spec §6
// requires session-targeted `game_state` delivery on join/respawn.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	limiter  *api.WebSocketRateLimiter

	joinLimitersMu sync.Mutex
	joinLimiters   map[string]*rate.Limiter

	handlers  map[string]HandlerFunc
	onConnect ConnectFunc
	onDisc    DisconnectFunc

	// onSessionCount, when set, is notified after every register/unregister
	// so the caller can mirror the count into a metrics gauge without this
	// package needing to import anything metrics-related.
	onSessionCount func(count int)
	onRejected     func(reason string)
}

// OnSessionCountChanged registers a callback invoked with the current
// session count whenever a connection is added or removed.
func (h *Hub) OnSessionCountChanged(fn func(count int)) { h.onSessionCount = fn }

// OnRejected registers a callback invoked with a bounded reason string
// ("ws_total_limit" or "ws_ip_limit") whenever ServeWS turns a connection
// away, so the caller can mirror it into a metrics counter.
func (h *Hub) OnRejected(fn func(reason string)) { h.onRejected = fn }

// NewHub constructs an empty hub with the default per-IP connection limit.
// Register handlers with On before ServeWS is reachable by clients.
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]*session),
		limiter:      api.NewWebSocketRateLimiter(MaxConnectionsPerIP),
		joinLimiters: make(map[string]*rate.Limiter),
		handlers:     make(map[string]HandlerFunc),
	}
}

// AllowJoin reports whether sessionID's IP may attempt another join_game
// right now, per joinRatePerSecond/joinRateBurst. Unknown sessions (already
// disconnected) are denied.
func (h *Hub) AllowJoin(sessionID string) bool {
	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	h.joinLimitersMu.Lock()
	lim, ok := h.joinLimiters[s.ip]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(joinRatePerSecond), joinRateBurst)
		h.joinLimiters[s.ip] = lim
	}
	h.joinLimitersMu.Unlock()

	return lim.Allow()
}

// On registers an intent handler for an inbound event name.
func (h *Hub) On(event string, fn HandlerFunc) {
	h.handlers[event] = fn
}

// OnConnect registers the on_connect lifecycle callback.
func (h *Hub) OnConnect(fn ConnectFunc) { h.onConnect = fn }

// OnDisconnect registers the on_disconnect lifecycle callback.
func (h *Hub) OnDisconnect(fn DisconnectFunc) { h.onDisc = fn }

// SessionCount reports current live connections.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Emit sends an event to exactly one session (a "room" of one, per spec
// §4.5's room-targeted delivery).
func (h *Hub) Emit(sessionID, event string, payload interface{}) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("⚠️ transport: failed to marshal %s for %s: %v", event, sessionID, err)
		return
	}
	h.mu.RLock()
	s, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(s, msg)
}

// Broadcast sends an event to every connected session.
func (h *Hub) Broadcast(event string, payload interface{}) {
	h.broadcastFiltered(event, payload, "")
}

// BroadcastExcept sends an event to every session other than exceptSessionID.
func (h *Hub) BroadcastExcept(exceptSessionID, event string, payload interface{}) {
	h.broadcastFiltered(event, payload, exceptSessionID)
}

func (h *Hub) broadcastFiltered(event string, payload interface{}, exceptID string) {
	msg, err := marshalEnvelope(event, payload)
	if err != nil {
		log.Printf("⚠️ transport: failed to marshal %s: %v", event, err)
		return
	}
	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions))
	for id, s := range h.sessions {
		if id == exceptID {
			continue
		}
		targets = append(targets, s)
	}
	h.mu.RUnlock()
	for _, s := range targets {
		h.deliver(s, msg)
	}
}

func (h *Hub) deliver(s *session, msg []byte) {
	select {
	case s.send <- msg:
	default:
		// Backpressure: a slow client drops this message rather than
		// stalling every other session's broadcast.
	}
}

func marshalEnvelope(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: data})
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers a
// new session, applying the same per-IP and total connection limits the
// teacher's HandleWebSocket enforces.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ip := api.GetClientIP(r)

	h.mu.RLock()
	total := len(h.sessions)
	h.mu.RUnlock()
	if total >= MaxConnectionsTotal {
		if h.onRejected != nil {
			h.onRejected("ws_total_limit")
		}
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.limiter.Allow(ip) {
		if h.onRejected != nil {
			h.onRejected("ws_ip_limit")
		}
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.limiter.Release(ip)
		log.Printf("⚠️ transport: upgrade error: %v", err)
		return
	}

	s := &session{
		id:   uuid.NewString(),
		ip:   ip,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.sessions[s.id] = s
	count := len(h.sessions)
	h.mu.Unlock()

	log.Printf("📱 session %s connected from %s (%d total)", s.id, ip, count)
	if h.onSessionCount != nil {
		h.onSessionCount(count)
	}
	if h.onConnect != nil {
		h.onConnect(s.id)
	}

	go h.writePump(s)
	go h.readPump(s)
}

func (h *Hub) readPump(s *session) {
	defer h.unregister(s)
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		fn, ok := h.handlers[env.Event]
		if !ok {
			continue
		}
		fn(s.id, env.Data)
	}
}

func (h *Hub) writePump(s *session) {
	for msg := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.conn.Close()
			return
		}
	}
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; ok {
		delete(h.sessions, s.id)
	}
	ipStillInUse := false
	for _, other := range h.sessions {
		if other.ip == s.ip {
			ipStillInUse = true
			break
		}
	}
	count := len(h.sessions)
	h.mu.Unlock()
	h.limiter.Release(s.ip)

	if !ipStillInUse {
		h.joinLimitersMu.Lock()
		delete(h.joinLimiters, s.ip)
		h.joinLimitersMu.Unlock()
	}

	close(s.send)
	s.conn.Close()

	log.Printf("📱 session %s disconnected (%d remaining)", s.id, count)
	if h.onSessionCount != nil {
		h.onSessionCount(count)
	}
	if h.onDisc != nil {
		h.onDisc(s.id)
	}
}
