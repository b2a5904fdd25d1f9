package transport

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"minionwar/internal/game"
)

// updateGameStatePayload is the per-tick/post-event broadcast payload: players and
// minions only, no world dimensions (those never change after boot).
type updateGameStatePayload struct {
	Players    []game.PlayerView `json:"players"`
	AllMinions []game.MinionView `json:"all_minions"`
}

type playerLeftPayload struct {
	PlayerID string `json:"player_id"`
}

type nameChangedPayload struct {
	PlayerID string `json:"player_id"`
	OldName  string `json:"old_name"`
	NewName  string `json:"new_name"`
}

type respawnedPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type eliminatedPayload struct {
	PlayerID     string `json:"player_id"`
	PlayerName   string `json:"player_name"`
	EliminatedBy string `json:"eliminated_by"`
}

type infectionPayload struct {
	Winner       game.MinionView `json:"winner"`
	Loser        game.MinionView `json:"loser"`
	MaxFleetKill bool            `json:"max_fleet_kill"`
}

type failurePayload struct {
	Message string `json:"message"`
}

type joinPayload struct {
	Name string `json:"name"`
}

type movePayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type changeNamePayload struct {
	Name                    string `json:"name"`
	FromAdjectiveCollection bool   `json:"from_adjective_collection"`
}

// Adapter wires a Hub's inbound events to an Engine's lifecycle methods and
// implements game.Callbacks so the tick loop's outbound events reach the
// wire. This is the piece spec §4.5 calls the transport adapter: event
// dispatch in, room-targeted emit out.
type Adapter struct {
	hub    *Hub
	engine *game.Engine
}

// NewAdapter registers every client->server handler from spec §6 on hub and
// returns the adapter, which the caller should also pass as the Engine's
// Callbacks.
func NewAdapter(hub *Hub, engine *game.Engine) *Adapter {
	a := &Adapter{hub: hub, engine: engine}

	hub.On("join_game", a.handleJoin)
	hub.On("move_player", a.handleMove)
	hub.On("change_name", a.handleChangeName)
	hub.On("respawn_player", a.handleRespawn)
	hub.OnDisconnect(a.handleDisconnect)

	return a
}

func (a *Adapter) handleJoin(sessionID string, data json.RawMessage) {
	if !a.hub.AllowJoin(sessionID) {
		a.hub.Emit(sessionID, "join_failed", failurePayload{Message: "Too many join attempts, slow down."})
		return
	}

	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		a.hub.Emit(sessionID, "join_failed", failurePayload{Message: "Malformed join request."})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res := a.engine.JoinGame(ctx, sessionID, p.Name)
	if !res.OK {
		a.hub.Emit(sessionID, "join_failed", failurePayload{Message: res.Message})
		return
	}

	a.hub.Emit(sessionID, "game_state", res.State)
	a.hub.BroadcastExcept(sessionID, "update_game_state", updateGameStatePayload{
		Players: res.State.Players, AllMinions: res.State.AllMinions,
	})
	a.hub.BroadcastExcept(sessionID, "player_joined", res.Player)
}

func (a *Adapter) handleMove(sessionID string, data json.RawMessage) {
	var p movePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	a.engine.SetIntent(sessionID, p.DX, p.DY)
}

func (a *Adapter) handleChangeName(sessionID string, data json.RawMessage) {
	var p changeNamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		a.hub.Emit(sessionID, "name_change_failed", failurePayload{Message: "Malformed rename request."})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res := a.engine.ChangeName(ctx, sessionID, p.Name, p.FromAdjectiveCollection)

	if res.NoOp {
		return
	}
	if !res.OK {
		a.hub.Emit(sessionID, "name_change_failed", failurePayload{Message: res.Message})
		return
	}

	if res.Respawned {
		a.hub.Emit(sessionID, "player_respawned", respawnedPayload{PlayerID: sessionID, PlayerName: res.NewName})
		a.hub.Broadcast("game_state", res.State)
		return
	}

	a.hub.Broadcast("player_name_changed", nameChangedPayload{
		PlayerID: sessionID, OldName: res.OldName, NewName: res.NewName,
	})
	state := a.engine.StateSnapshot()
	a.hub.Broadcast("update_game_state", updateGameStatePayload{Players: state.Players, AllMinions: state.AllMinions})
}

func (a *Adapter) handleRespawn(sessionID string, _ json.RawMessage) {
	res := a.engine.Respawn(sessionID)
	if !res.OK {
		return
	}
	state := a.engine.StateSnapshot()
	var name string
	for _, p := range state.Players {
		if p.ID == sessionID {
			name = p.Name
			break
		}
	}
	a.hub.Emit(sessionID, "player_respawned", respawnedPayload{PlayerID: sessionID, PlayerName: name})
	a.hub.Broadcast("game_state", res.State)
}

func (a *Adapter) handleDisconnect(sessionID string) {
	name, existed := a.engine.Disconnect(sessionID)
	if !existed {
		return
	}
	log.Printf("📱 %s left the game", name)
	a.hub.Broadcast("player_left", playerLeftPayload{PlayerID: sessionID})
	state := a.engine.StateSnapshot()
	a.hub.Broadcast("update_game_state", updateGameStatePayload{Players: state.Players, AllMinions: state.AllMinions})
}

// OnStateUpdate implements game.Callbacks: the per-tick/post-adjudication
// broadcast of the full players+minions view.
func (a *Adapter) OnStateUpdate(players []game.PlayerView, minions []game.MinionView) {
	if a.hub.SessionCount() == 0 {
		return
	}
	a.hub.Broadcast("update_game_state", updateGameStatePayload{Players: players, AllMinions: minions})
}

// OnInfection implements game.Callbacks.
func (a *Adapter) OnInfection(winner, loser game.MinionView, maxFleetKill bool) {
	a.hub.Broadcast("infection_happened", infectionPayload{Winner: winner, Loser: loser, MaxFleetKill: maxFleetKill})
}

// OnPlayerEliminated implements game.Callbacks.
func (a *Adapter) OnPlayerEliminated(playerID, playerName, eliminatedBy string) {
	a.hub.Broadcast("player_eliminated", eliminatedPayload{
		PlayerID: playerID, PlayerName: playerName, EliminatedBy: eliminatedBy,
	})
}

// OnPlayerJoined, OnPlayerLeft, OnNameChanged, and OnPlayerRespawned satisfy
// game.Callbacks but are unused by the engine's own tick loop — the adapter
// emits these directly from its inbound handlers above, where it already
// has the session ID in hand. They're kept as no-ops here so Adapter can
// still be passed wherever a game.Callbacks is expected.
func (a *Adapter) OnPlayerJoined(p game.PlayerView)                     {}
func (a *Adapter) OnPlayerLeft(playerID string)                         {}
func (a *Adapter) OnNameChanged(playerID, oldName, newName string)      {}
func (a *Adapter) OnPlayerRespawned(playerID, playerName string)        {}
