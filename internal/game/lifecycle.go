package game

import (
	"context"
	"time"
)

// JoinResult carries either a successful join's snapshot and player view, or
// a failure message for a join_failed event (spec §4.3).
type JoinResult struct {
	OK      bool
	Message string
	State   GameStateView
	Player  PlayerView
}

// JoinGame validates and admits a new session, following spec §4.3's exact
// order: trim, moderate, check uniqueness, then create the fleet.
func (e *Engine) JoinGame(ctx context.Context, sessionID, rawName string) JoinResult {
	name := normalizeName(rawName)
	if name == "" {
		return JoinResult{Message: "Please enter a name."}
	}

	if !e.resolver.CheckName(ctx, name) {
		return JoinResult{Message: "That name isn't appropriate for this game. Please choose another."}
	}

	e.world.mu.Lock()
	if nameTaken(name, e.world.players, "") {
		e.world.mu.Unlock()
		return JoinResult{Message: "That name is already taken."}
	}

	p := newPlayer(sessionID, name, e.world.lockedNextColorIndex())
	e.world.players[sessionID] = p
	e.world.lockedSpawnFleet(p)

	players, minions := e.world.lockedSnapshot()
	state := GameStateView{
		Players:    players,
		World:      WorldDims{Width: e.world.width, Height: e.world.height},
		AllMinions: minions,
	}
	var joined PlayerView
	for _, pv := range players {
		if pv.ID == sessionID {
			joined = pv
			break
		}
	}
	e.world.mu.Unlock()

	return JoinResult{OK: true, State: state, Player: joined}
}

// SetIntent records a player's latest move_player vector. It is applied on
// the next tick's physics step.
func (e *Engine) SetIntent(sessionID string, dx, dy float64) {
	e.world.mu.Lock()
	defer e.world.mu.Unlock()
	if p, ok := e.world.players[sessionID]; ok {
		p.DX, p.DY = dx, dy
	}
}

// RenameResult mirrors the three outcomes of change_name: silent no-op,
// failure, or success (which may be a plain rename or a rename-respawn).
type RenameResult struct {
	OK        bool
	NoOp      bool
	Message   string
	Respawned bool
	OldName   string
	NewName   string
	State     GameStateView // populated only when Respawned
}

// ChangeName implements spec §4.3's change_name handler, including the
// rename-respawn branch for an eliminated session picking a new name.
func (e *Engine) ChangeName(ctx context.Context, sessionID, rawName string, fromAdjectiveCollection bool) RenameResult {
	name := normalizeName(rawName)
	if name == "" {
		return RenameResult{NoOp: true}
	}

	if !fromAdjectiveCollection {
		if !e.resolver.CheckName(ctx, name) {
			return RenameResult{Message: "That name isn't appropriate for this game. Please choose another."}
		}
	}

	e.world.mu.Lock()
	defer e.world.mu.Unlock()

	p, exists := e.world.players[sessionID]
	if exists && p.Name == name {
		return RenameResult{NoOp: true}
	}
	if nameTaken(name, e.world.players, sessionID) {
		return RenameResult{Message: "That name is already taken."}
	}

	if !exists {
		// A session with no player record (one that never joined) picking
		// a name: treat as a fresh rename-respawn under a new player record.
		p = newPlayer(sessionID, name, e.world.lockedNextColorIndex())
		e.world.players[sessionID] = p
		e.world.lockedPurgeGhosts(sessionID, name)
		e.world.lockedSpawnFleet(p)
		players, minions := e.world.lockedSnapshot()
		return RenameResult{
			OK: true, Respawned: true, NewName: name,
			State: GameStateView{Players: players, World: WorldDims{Width: e.world.width, Height: e.world.height}, AllMinions: minions},
		}
	}

	owned := e.world.lockedOwnedMinions(sessionID)
	if len(owned) == 0 {
		oldName := p.Name
		p.Name = name
		p.rerollColor(e.world.lockedNextColorIndex())
		e.world.lockedPurgeGhosts(sessionID, oldName)
		e.world.lockedSpawnFleet(p)
		players, minions := e.world.lockedSnapshot()
		return RenameResult{
			OK: true, Respawned: true, OldName: oldName, NewName: name,
			State: GameStateView{Players: players, World: WorldDims{Width: e.world.width, Height: e.world.height}, AllMinions: minions},
		}
	}

	oldName := p.Name
	p.Name = name
	e.world.lockedRenameMinions(oldName, name)
	return RenameResult{OK: true, OldName: oldName, NewName: name}
}

// RespawnResult mirrors respawn_player's outcome.
type RespawnResult struct {
	OK    bool
	State GameStateView
}

// Respawn implements the explicit respawn_player handler: identical to the
// rename-respawn branch without a name change, and grants the reserved
// player-level invulnerability window spec §4.3/§9 describes (set but never
// consulted by the collision machine).
func (e *Engine) Respawn(sessionID string) RespawnResult {
	e.world.mu.Lock()
	defer e.world.mu.Unlock()

	p, exists := e.world.players[sessionID]
	if !exists {
		return RespawnResult{}
	}
	if len(e.world.lockedOwnedMinions(sessionID)) > 0 {
		return RespawnResult{}
	}

	p.InvulnerableUntil = time.Now().Add(durationSeconds(e.fleet.RespawnInvulnSeconds))
	e.world.lockedPurgeGhosts(sessionID, p.Name)
	e.world.lockedSpawnFleet(p)

	players, minions := e.world.lockedSnapshot()
	return RespawnResult{
		OK: true,
		State: GameStateView{
			Players: players, World: WorldDims{Width: e.world.width, Height: e.world.height}, AllMinions: minions,
		},
	}
}

// Disconnect tears a session down: every minion it owns, and every minion
// still bearing its name (the defensive dual sweep spec §4.3/§9 mandates),
// is removed.
func (e *Engine) Disconnect(sessionID string) (playerName string, existed bool) {
	e.world.mu.Lock()
	defer e.world.mu.Unlock()

	p, exists := e.world.players[sessionID]
	if !exists {
		return "", false
	}
	e.world.lockedPurgeGhosts(sessionID, p.Name)
	delete(e.world.players, sessionID)
	return p.Name, true
}

// StateSnapshot exposes the current full state, e.g. for HTTP health/test
// endpoints.
func (e *Engine) StateSnapshot() GameStateView {
	return e.world.Snapshot()
}

// PlayerCount and MinionCount satisfy api.StateProvider for the /test
// endpoint without requiring a full snapshot allocation.
func (e *Engine) PlayerCount() int {
	e.world.mu.Lock()
	defer e.world.mu.Unlock()
	return len(e.world.players)
}

func (e *Engine) MinionCount() int {
	e.world.mu.Lock()
	defer e.world.mu.Unlock()
	return len(e.world.minions)
}
