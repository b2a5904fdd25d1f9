package game

import (
	"testing"
	"time"

	"minionwar/internal/config"
)

func newTestWorld() *World {
	fleet := config.DefaultFleet()
	return NewWorld(config.WorldConfig{Width: 2000, Height: 2000}, fleet)
}

func TestDetectEligiblePairsFindsOverlappingDifferentOwners(t *testing.T) {
	w := newTestWorld()
	a := newMinion("p1", "Rock", "#fff", 100, 100, 45)
	b := newMinion("p2", "Paper", "#000", 110, 100, 45)
	w.minions[a.ID] = a
	w.minions[b.ID] = b

	now := time.Now()
	pairs := w.detectEligiblePairs(now, 2*time.Second)
	if len(pairs) != 1 {
		t.Fatalf("expected 1 eligible pair, got %d", len(pairs))
	}
}

func TestDetectEligiblePairsSkipsSameOwner(t *testing.T) {
	w := newTestWorld()
	a := newMinion("p1", "Rock", "#fff", 100, 100, 45)
	b := newMinion("p1", "Rock2", "#fff", 110, 100, 45)
	w.minions[a.ID] = a
	w.minions[b.ID] = b

	pairs := w.detectEligiblePairs(time.Now(), 2*time.Second)
	if len(pairs) != 0 {
		t.Errorf("expected same-owner collisions to be skipped, got %d", len(pairs))
	}
}

func TestDetectEligiblePairsRespectsCooldown(t *testing.T) {
	w := newTestWorld()
	a := newMinion("p1", "Rock", "#fff", 100, 100, 45)
	b := newMinion("p2", "Paper", "#000", 110, 100, 45)
	w.minions[a.ID] = a
	w.minions[b.ID] = b

	now := time.Now()
	first := w.detectEligiblePairs(now, 2*time.Second)
	if len(first) != 1 {
		t.Fatalf("expected first detection to find the pair, got %d", len(first))
	}

	second := w.detectEligiblePairs(now.Add(100*time.Millisecond), 2*time.Second)
	if len(second) != 0 {
		t.Errorf("expected the pair to be suppressed within the 1s cooldown, got %d", len(second))
	}

	third := w.detectEligiblePairs(now.Add(1100*time.Millisecond), 2*time.Second)
	if len(third) != 1 {
		t.Errorf("expected the pair eligible again after the cooldown elapses, got %d", len(third))
	}
}

func TestDetectEligiblePairsRespectsInvulnerability(t *testing.T) {
	w := newTestWorld()
	a := newMinion("p1", "Rock", "#fff", 100, 100, 45)
	b := newMinion("p2", "Paper", "#000", 110, 100, 45)
	a.LastInfectionTime = time.Now()
	w.minions[a.ID] = a
	w.minions[b.ID] = b

	pairs := w.detectEligiblePairs(time.Now(), 2*time.Second)
	if len(pairs) != 0 {
		t.Errorf("expected a minion mid-grace to be ignored, got %d pairs", len(pairs))
	}
}

func TestDetectEligiblePairsSkipsOutOfRange(t *testing.T) {
	w := newTestWorld()
	a := newMinion("p1", "Rock", "#fff", 100, 100, 45)
	b := newMinion("p2", "Paper", "#000", 1000, 1000, 45)
	w.minions[a.ID] = a
	w.minions[b.ID] = b

	pairs := w.detectEligiblePairs(time.Now(), 2*time.Second)
	if len(pairs) != 0 {
		t.Errorf("expected distant minions not to collide, got %d pairs", len(pairs))
	}
}
