package game

import "math"

// speedMultiplier derives the fleet-size speed curve from spec §4.1: small
// fleets move at full speed, larger fleets taper down to a floor of 0.95×,
// the "mild" curve the spec adopts over the more severe alternative from
// early drafts.
func speedMultiplier(fleetSize int) float64 {
	n := float64(fleetSize)
	switch {
	case fleetSize <= 3:
		return 1.0
	case fleetSize <= 8:
		return 1.0 - (n-3)*0.005
	default:
		m := 0.975 - (n-8)*0.002
		if m < 0.95 {
			return 0.95
		}
		return m
	}
}

// stepPhysics advances every player's fleet by one tick of delta time dt
// (already clamped by the caller to MaxDeltaSeconds). Caller must hold mu.
func (w *World) stepPhysics(dt float64) {
	for _, p := range w.players {
		owned := w.lockedOwnedMinions(p.ID)
		if len(owned) == 0 {
			continue
		}
		w.stepFleet(p, owned, dt)
	}
}

func (w *World) stepFleet(p *Player, owned []*Minion, dt float64) {
	n := len(owned)
	fcx, fcy := lockedFleetCenter(owned)

	intentMag := math.Hypot(p.DX, p.DY)
	idle := intentMag <= 1

	multiplier := speedMultiplier(n)
	disp := w.fleet.BaseMaxSpeed * dt * multiplier

	var unitDX, unitDY float64
	if !idle {
		unitDX = p.DX / intentMag
		unitDY = p.DY / intentMag
	}

	cohesionWeight, separationWeight := 0.4, 0.15
	if n > 20 {
		cohesionWeight, separationWeight = 0.45, 0.2
	}

	for i, m := range owned {
		theta := 2 * math.Pi * float64(i) / float64(n)
		tdx := unitDX*intentMag + 20*math.Cos(theta)
		tdy := unitDY*intentMag + 20*math.Sin(theta)
		tMag := math.Hypot(tdx, tdy)

		cohX, cohY := cohesion(m, fcx, fcy, disp)
		sepX, sepY := separation(m, owned, w.fleet.MinionSize, disp)

		var dmx, dmy float64
		if !idle {
			var moveX, moveY float64
			if tMag > 0 {
				moveX = tdx / tMag * disp
				moveY = tdy / tMag * disp
			}
			dmx = 0.7*moveX + cohesionWeight*cohX + separationWeight*sepX
			dmy = 0.7*moveY + cohesionWeight*cohY + separationWeight*sepY
		} else {
			dmx = 0.5*cohX + 0.3*sepX
			dmy = 0.5*cohY + 0.3*sepY
		}

		m.X += dmx
		m.Y += dmy
		w.applyBounds(m)
	}
}

// cohesion returns a pull vector from m toward the fleet center, scaled by
// disp, using the distance-dependent strength curve from spec §4.1.
func cohesion(m *Minion, fcx, fcy, disp float64) (x, y float64) {
	dx := fcx - m.X
	dy := fcy - m.Y
	c := math.Hypot(dx, dy)
	if c == 0 {
		return 0, 0
	}

	var strength float64
	if c < 80 {
		strength = min(c/120, 0.6)
	} else {
		strength = min(c/100, 0.7)
	}

	return dx / c * strength * disp, dy / c * strength * disp
}

// separation returns a push vector away from nearby fleetmates, proportional
// to overlap depth and scaled by disp, per spec §4.1.
func separation(m *Minion, owned []*Minion, size, disp float64) (x, y float64) {
	threshold := 1.3 * size
	severe := 0.8 * size

	var sx, sy float64
	for _, other := range owned {
		if other == m {
			continue
		}
		dx := m.X - other.X
		dy := m.Y - other.Y
		dist := math.Hypot(dx, dy)
		if dist >= threshold || dist == 0 {
			continue
		}

		overlapFrac := (threshold - dist) / threshold
		factor := 0.2
		if dist < severe {
			factor = 0.4
		}

		sx += dx / dist * overlapFrac * factor * disp
		sy += dy / dist * overlapFrac * factor * disp
	}
	return sx, sy
}

// applyBounds soft-bounces a minion off the world edges: rather than a hard
// clamp, a minion past the margin reflects 10% of its overshoot back inward,
// so fleets don't stick to walls (spec §4.1).
func (w *World) applyBounds(m *Minion) {
	margin := m.Size / 2
	if m.X < margin {
		m.X = margin + (margin-m.X)*0.1
	}
	if m.X > w.width-margin {
		over := m.X - (w.width - margin)
		m.X = w.width - margin - over*0.1
	}
	if m.Y < margin {
		m.Y = margin + (margin-m.Y)*0.1
	}
	if m.Y > w.height-margin {
		over := m.Y - (w.height - margin)
		m.Y = w.height - margin - over*0.1
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
