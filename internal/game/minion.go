package game

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Minion is an atomic, mobile disk belonging to a player's fleet. Its
// OriginalName is the identity used for oracle adjudication; it changes only
// on infection, when it takes the winning minion's name.
type Minion struct {
	ID           string
	OriginalName string
	OwnerID      string

	X, Y float64
	Size float64

	Color string

	// LastInfectionTime is the moment this minion was last converted by an
	// infection; it grants a post-infection invulnerability window.
	LastInfectionTime time.Time

	// CanInfectAfter is the moment before which this minion may not act as
	// the attacker in an infection — a quiescence window that stops a freshly
	// converted minion from immediately chain-infecting a neighbor.
	CanInfectAfter time.Time
}

// newMinion creates a minion owned by a player, spawned at (x, y). A fresh
// minion starts immediately eligible to attack: CanInfectAfter is the zero
// time, which every wall-clock instant is at-or-after.
func newMinion(ownerID, ownerName, color string, x, y, size float64) *Minion {
	return &Minion{
		ID:           uuid.NewString(),
		OriginalName: ownerName,
		OwnerID:      ownerID,
		X:            x,
		Y:            y,
		Size:         size,
		Color:        color,
	}
}

// IsInvulnerable reports whether this minion is still within its
// post-infection grace window (spec §4.2's "Active → InfectionGrace(2s)").
func (m *Minion) IsInvulnerable(now time.Time, grace time.Duration) bool {
	return now.Sub(m.LastInfectionTime) < grace
}

// CanAttack reports whether this minion's post-infection quiescence window
// ("Quiescent(1.5s)") has elapsed, so it may be an attacker again.
func (m *Minion) CanAttack(now time.Time) bool {
	return !now.Before(m.CanInfectAfter)
}

// infect converts this minion to the winner's identity, as spec §4.2 step 3
// describes: ownership, color, and name all transfer, and both the grace
// clock and the quiescence clock reset.
func (m *Minion) infect(now time.Time, winner *Minion, quiescence time.Duration) {
	m.OwnerID = winner.OwnerID
	m.Color = winner.Color
	m.OriginalName = winner.OriginalName
	m.LastInfectionTime = now
	m.CanInfectAfter = now.Add(quiescence)
}

func distance(ax, ay, bx, by float64) float64 {
	dx := ax - bx
	dy := ay - by
	return math.Sqrt(dx*dx + dy*dy)
}
