package game

import (
	"time"
)

// pairCooldown is the minimum time between two collision events for the
// same pair of minions (spec §4.2).
const pairCooldown = 1 * time.Second

// collisionCandidate is a snapshot of an eligible pair at detection time —
// enough to run adjudication without holding the world lock, and enough to
// re-check eligibility once the oracle answers.
type collisionCandidate struct {
	aID, bID     string
	aName, bName string
}

// detectEligiblePairs performs broad-phase spatial lookup followed by exact
// narrow-phase distance checks, returning every pair eligible for
// adjudication this tick. Eligible pairs have their cooldown stamped
// immediately, so the same physical contact can't be enqueued twice while
// adjudication is in flight. Caller must hold mu.
func (w *World) detectEligiblePairs(now time.Time, grace time.Duration) []collisionCandidate {
	ordered := make([]*Minion, 0, len(w.minions))
	for _, m := range w.minions {
		ordered = append(ordered, m)
	}

	w.grid.Clear()
	for idx, m := range ordered {
		w.grid.Insert(uint32(idx), m.X, m.Y)
	}

	seen := make(map[string]bool)
	var candidates []collisionCandidate

	for thisIdx, m := range ordered {
		radius := m.Size * 1.3
		near := w.grid.QueryRadius(m.X, m.Y, radius)
		for _, otherIdx := range near {
			if int(otherIdx) == thisIdx {
				continue
			}
			if int(otherIdx) >= len(ordered) {
				continue
			}
			other := ordered[otherIdx]
			pairID := cooldownKey(m.ID, other.ID)
			if seen[pairID] {
				continue
			}
			seen[pairID] = true

			if m.OwnerID == other.OwnerID {
				continue
			}
			if distance(m.X, m.Y, other.X, other.Y) >= (m.Size+other.Size)/2 {
				continue
			}
			if last, ok := w.cooldowns[pairID]; ok && now.Sub(last) < pairCooldown {
				continue
			}
			if m.IsInvulnerable(now, grace) || other.IsInvulnerable(now, grace) {
				continue
			}
			if !m.CanAttack(now) || !other.CanAttack(now) {
				continue
			}

			w.cooldowns[pairID] = now
			candidates = append(candidates, collisionCandidate{
				aID: m.ID, bID: other.ID,
				aName: m.OriginalName, bName: other.OriginalName,
			})
		}
	}

	return candidates
}

// outcome describes what happened when an adjudication was applied, for the
// caller to translate into broadcast events in the right order.
type outcome struct {
	maxFleetKill bool
	winner       Minion // snapshot after mutation
	loser        Minion // snapshot *before* mutation (pre-infection identity)

	eliminated     bool
	eliminatedID   string
	eliminatedName string
	eliminatedBy   string
}

// applyOutcome re-validates and applies an adjudicated collision. Returns
// (outcome, true) if the outcome was applied, or (zero, false) if the
// re-check failed and the result was dropped per spec §4.2/§7. Caller must
// hold mu.
func (w *World) applyOutcome(now time.Time, cand collisionCandidate, winnerName, loserName string, quiescence, grace time.Duration) (outcome, bool) {
	a, aOK := w.minions[cand.aID]
	b, bOK := w.minions[cand.bID]
	if !aOK || !bOK {
		return outcome{}, false
	}
	if a.OwnerID == b.OwnerID {
		return outcome{}, false
	}
	if a.OriginalName != cand.aName || b.OriginalName != cand.bName {
		return outcome{}, false
	}
	if a.IsInvulnerable(now, grace) || b.IsInvulnerable(now, grace) {
		return outcome{}, false
	}
	if !a.CanAttack(now) || !b.CanAttack(now) {
		return outcome{}, false
	}

	var winner, loser *Minion
	switch winnerName {
	case a.OriginalName:
		winner, loser = a, b
	case b.OriginalName:
		winner, loser = b, a
	default:
		return outcome{}, false
	}
	if loser.OriginalName != loserName {
		return outcome{}, false
	}

	winnerOwner := w.players[winner.OwnerID]
	if winnerOwner == nil {
		return outcome{}, false
	}

	loserPreInfection := *loser
	oldOwnerID := loser.OwnerID
	oldOwner := w.players[oldOwnerID]

	out := outcome{loser: loserPreInfection}

	if len(w.lockedOwnedMinions(winner.OwnerID)) >= w.fleet.MaxFleetSize {
		delete(w.minions, loser.ID)
		out.maxFleetKill = true
		out.winner = *winner
	} else {
		loser.infect(now, winner, quiescence)
		out.winner = *winner
	}

	if oldOwner != nil && len(w.lockedOwnedMinions(oldOwnerID)) == 0 {
		// The session itself isn't torn down here — it stays connected with
		// zero minions until it respawns or disconnects (spec §4.3).
		w.lockedPurgeGhosts(oldOwnerID, oldOwner.Name)
		out.eliminated = true
		out.eliminatedID = oldOwnerID
		out.eliminatedName = oldOwner.Name
		out.eliminatedBy = winnerOwner.Name
	}

	return out, true
}
