package game

import "time"

// MinionView is the wire representation of a minion, matching spec §6's
// minion dict exactly.
type MinionView struct {
	ID             string  `json:"id"`
	OriginalName   string  `json:"original_name"`
	OwnerID        string  `json:"owner_id"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Size           float64 `json:"size"`
	Color          string  `json:"color"`
	IsInvulnerable bool    `json:"is_invulnerable"`
	CanInfect      bool    `json:"can_infect"`
}

// PlayerView is the wire representation of a player, matching spec §6's
// player dict exactly.
type PlayerView struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Color         string       `json:"color"`
	MinionCount   int          `json:"minion_count"`
	FleetCenterX  float64      `json:"fleet_center_x"`
	FleetCenterY  float64      `json:"fleet_center_y"`
	Minions       []MinionView `json:"minions"`
}

func minionView(m *Minion, grace, quiescence time.Duration) MinionView {
	now := time.Now()
	return MinionView{
		ID:             m.ID,
		OriginalName:   m.OriginalName,
		OwnerID:        m.OwnerID,
		X:              m.X,
		Y:              m.Y,
		Size:           m.Size,
		Color:          m.Color,
		IsInvulnerable: m.IsInvulnerable(now, grace),
		CanInfect:      m.CanAttack(now),
	}
}

// lockedSnapshot builds the full players and minions view slices for
// broadcast. Caller must hold mu.
func (w *World) lockedSnapshot() ([]PlayerView, []MinionView) {
	now := time.Now()
	grace := durationSeconds(w.fleet.InfectionGraceSeconds)

	allMinions := make([]MinionView, 0, len(w.minions))
	minionsByOwner := make(map[string][]MinionView, len(w.players))
	for _, m := range w.minions {
		mv := MinionView{
			ID:             m.ID,
			OriginalName:   m.OriginalName,
			OwnerID:        m.OwnerID,
			X:              m.X,
			Y:              m.Y,
			Size:           m.Size,
			Color:          m.Color,
			IsInvulnerable: m.IsInvulnerable(now, grace),
			CanInfect:      m.CanAttack(now),
		}
		allMinions = append(allMinions, mv)
		minionsByOwner[m.OwnerID] = append(minionsByOwner[m.OwnerID], mv)
	}

	players := make([]PlayerView, 0, len(w.players))
	for _, p := range w.players {
		owned := minionsByOwner[p.ID]
		cx, cy := viewCenter(owned)
		players = append(players, PlayerView{
			ID:           p.ID,
			Name:         p.Name,
			Color:        p.Color,
			MinionCount:  len(owned),
			FleetCenterX: cx,
			FleetCenterY: cy,
			Minions:      owned,
		})
	}

	return players, allMinions
}

func viewCenter(minions []MinionView) (cx, cy float64) {
	if len(minions) == 0 {
		return 0, 0
	}
	for _, m := range minions {
		cx += m.X
		cy += m.Y
	}
	n := float64(len(minions))
	return cx / n, cy / n
}

// GameStateView is the full-snapshot payload sent on join/respawn (spec §6's
// game_state event): players, world dimensions, and every minion.
type GameStateView struct {
	Players    []PlayerView `json:"players"`
	World      WorldDims    `json:"world"`
	AllMinions []MinionView `json:"all_minions"`
}

// WorldDims is the world-size payload embedded in game_state.
type WorldDims struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Snapshot returns the full game state for a single joining/respawning
// client.
func (w *World) Snapshot() GameStateView {
	w.mu.Lock()
	defer w.mu.Unlock()
	players, minions := w.lockedSnapshot()
	return GameStateView{
		Players:    players,
		World:      WorldDims{Width: w.width, Height: w.height},
		AllMinions: minions,
	}
}
