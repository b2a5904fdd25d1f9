package transport

import (
	"encoding/json"
	"testing"
	"time"

	"minionwar/internal/config"
	"minionwar/internal/game"
	"minionwar/internal/oracle"
)

func testAdapter() (*Adapter, *Hub) {
	fleet := config.DefaultFleet()
	fleet.InitialFleet = 5
	world := game.NewWorld(config.WorldConfig{Width: 4000, Height: 3000}, fleet)
	resolver := oracle.NewResolver(oracle.NewCache(""), oracle.NewClient("", "", "", 1), nil)
	hub := NewHub()
	var a *Adapter
	engine := game.NewEngine(world, resolver, fleet, 60, callbacksProxy{get: func() game.Callbacks { return a }})
	a = NewAdapter(hub, engine)
	return a, hub
}

// callbacksProxy defers to whatever Adapter ends up being, since Adapter and
// Engine are constructed in a cycle (the engine needs callbacks before the
// adapter that implements them exists).
type callbacksProxy struct {
	get func() game.Callbacks
}

func (c callbacksProxy) OnStateUpdate(players []game.PlayerView, minions []game.MinionView) {
	c.get().OnStateUpdate(players, minions)
}
func (c callbacksProxy) OnInfection(winner, loser game.MinionView, maxFleetKill bool) {
	c.get().OnInfection(winner, loser, maxFleetKill)
}
func (c callbacksProxy) OnPlayerEliminated(playerID, playerName, eliminatedBy string) {
	c.get().OnPlayerEliminated(playerID, playerName, eliminatedBy)
}
func (c callbacksProxy) OnPlayerJoined(p game.PlayerView)                { c.get().OnPlayerJoined(p) }
func (c callbacksProxy) OnPlayerLeft(playerID string)                    { c.get().OnPlayerLeft(playerID) }
func (c callbacksProxy) OnNameChanged(playerID, oldName, newName string) {
	c.get().OnNameChanged(playerID, oldName, newName)
}
func (c callbacksProxy) OnPlayerRespawned(playerID, playerName string) {
	c.get().OnPlayerRespawned(playerID, playerName)
}

// registerFakeSession plugs a session into the hub without a real socket, so
// adapter handlers can be exercised and their emitted envelopes inspected.
func registerFakeSession(h *Hub, id string) chan []byte {
	send := make(chan []byte, 64)
	h.mu.Lock()
	h.sessions[id] = &session{id: id, send: send}
	h.mu.Unlock()
	return send
}

func drainEvent(t *testing.T, ch chan []byte) envelope {
	t.Helper()
	select {
	case raw := <-ch:
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("bad envelope: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
	}
	return envelope{}
}

func TestHandleJoinEmitsGameStateToJoiner(t *testing.T) {
	a, hub := testAdapter()
	send := registerFakeSession(hub, "sess-1")

	a.handleJoin("sess-1", json.RawMessage(`{"name":"Alice"}`))

	env := drainEvent(t, send)
	if env.Event != "game_state" {
		t.Fatalf("expected game_state, got %s", env.Event)
	}
}

func TestHandleJoinRejectsEmptyName(t *testing.T) {
	a, hub := testAdapter()
	send := registerFakeSession(hub, "sess-1")

	a.handleJoin("sess-1", json.RawMessage(`{"name":"   "}`))

	env := drainEvent(t, send)
	if env.Event != "join_failed" {
		t.Fatalf("expected join_failed, got %s", env.Event)
	}
}

func TestHandleJoinBroadcastsPlayerJoinedToOthers(t *testing.T) {
	a, hub := testAdapter()
	joinerSend := registerFakeSession(hub, "sess-1")
	otherSend := registerFakeSession(hub, "sess-2")

	a.handleJoin("sess-1", json.RawMessage(`{"name":"Alice"}`))
	drainEvent(t, joinerSend) // game_state to the joiner

	sawPlayerJoined := false
	for i := 0; i < 2; i++ {
		env := drainEvent(t, otherSend)
		if env.Event == "player_joined" {
			sawPlayerJoined = true
		}
	}
	if !sawPlayerJoined {
		t.Error("expected sess-2 to receive player_joined")
	}
}

func TestHandleChangeNameNoOpSendsNothing(t *testing.T) {
	a, hub := testAdapter()
	send := registerFakeSession(hub, "sess-1")
	a.handleJoin("sess-1", json.RawMessage(`{"name":"Alice"}`))
	drainEvent(t, send)

	a.handleChangeName("sess-1", json.RawMessage(`{"name":"Alice"}`))

	select {
	case env := <-send:
		t.Fatalf("expected no event for a no-op rename, got %v", env)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHandleRespawnNoOpWhenStillAlive(t *testing.T) {
	a, hub := testAdapter()
	send := registerFakeSession(hub, "sess-1")
	a.handleJoin("sess-1", json.RawMessage(`{"name":"Alice"}`))
	drainEvent(t, send)

	a.handleRespawn("sess-1", nil)

	select {
	case env := <-send:
		t.Fatalf("expected no respawn event while alive, got %v", env)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestHandleDisconnectBroadcastsPlayerLeft(t *testing.T) {
	a, hub := testAdapter()
	send := registerFakeSession(hub, "sess-1")
	a.handleJoin("sess-1", json.RawMessage(`{"name":"Alice"}`))
	drainEvent(t, send)

	other := registerFakeSession(hub, "sess-2")

	// Mirror the real flow: Hub.unregister removes the session from the map
	// before invoking on_disconnect.
	hub.mu.Lock()
	delete(hub.sessions, "sess-1")
	hub.mu.Unlock()

	a.handleDisconnect("sess-1")

	sawLeft := false
	for i := 0; i < 2; i++ {
		env := drainEvent(t, other)
		if env.Event == "player_left" {
			sawLeft = true
		}
	}
	if !sawLeft {
		t.Error("expected sess-2 to receive player_left")
	}
}
