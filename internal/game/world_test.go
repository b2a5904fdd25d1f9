package game

import (
	"context"
	"testing"
)

func TestInvariantNoDuplicateNames(t *testing.T) {
	e := testEngine()
	e.JoinGame(context.Background(), "a", "Rock")
	e.JoinGame(context.Background(), "b", "Rock")

	state := e.StateSnapshot()
	seen := map[string]bool{}
	for _, p := range state.Players {
		if seen[p.Name] {
			t.Fatalf("duplicate live name %q", p.Name)
		}
		seen[p.Name] = true
	}
	if len(state.Players) != 1 {
		t.Fatalf("expected the duplicate join to be rejected, got %d players", len(state.Players))
	}
}

func TestInvariantEveryMinionOwnerIsLivePlayer(t *testing.T) {
	e := testEngine()
	e.JoinGame(context.Background(), "a", "Rock")
	e.JoinGame(context.Background(), "b", "Paper")

	state := e.StateSnapshot()
	live := map[string]bool{}
	for _, p := range state.Players {
		live[p.ID] = true
	}
	for _, m := range state.AllMinions {
		if !live[m.OwnerID] {
			t.Errorf("minion %s owner %s is not a live player", m.ID, m.OwnerID)
		}
	}
}

func TestInvariantFleetWithinCap(t *testing.T) {
	e := testEngine()
	e.JoinGame(context.Background(), "a", "Rock")

	state := e.StateSnapshot()
	for _, p := range state.Players {
		if p.MinionCount > e.fleet.MaxFleetSize {
			t.Errorf("player %s exceeds MaxFleetSize: %d > %d", p.Name, p.MinionCount, e.fleet.MaxFleetSize)
		}
	}
}

func TestInvariantPositionsWithinBounds(t *testing.T) {
	e := testEngine()
	e.JoinGame(context.Background(), "a", "Rock")

	state := e.StateSnapshot()
	for _, m := range state.AllMinions {
		margin := m.Size / 2
		if m.X < -margin || m.X > state.World.Width+margin {
			t.Errorf("minion %s X out of bounds: %v", m.ID, m.X)
		}
		if m.Y < -margin || m.Y > state.World.Height+margin {
			t.Errorf("minion %s Y out of bounds: %v", m.ID, m.Y)
		}
	}
}
