package game

import "time"

// palette is the fixed pastel color set players are assigned from, ported
// from the original game's PASTEL_COLORS.
var palette = []string{
	"#FFB3BA", "#FFDFBA", "#FFFFBA", "#BAFFC9",
	"#BAE1FF", "#E0BAFF", "#FFBAF0", "#C9FFE5",
}

func paletteColor(index int) string {
	return palette[index%len(palette)]
}

// Player is one connected session that has successfully joined.
type Player struct {
	ID    string
	Name  string
	Color string

	// DX, DY is the latest client-reported movement intent: a (typically
	// non-normalized) vector from the fleet center toward the cursor.
	DX, DY float64

	// InvulnerableUntil is set on explicit respawn but, per spec §9's open
	// question, is never consulted by the collision state machine — it's a
	// reserved field for a future player-level invulnerability mechanic.
	InvulnerableUntil time.Time

	colorIndex int
}

func newPlayer(id, name string, colorIndex int) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		Color:      paletteColor(colorIndex),
		colorIndex: colorIndex,
	}
}

func (p *Player) rerollColor(colorIndex int) {
	p.colorIndex = colorIndex
	p.Color = paletteColor(colorIndex)
}
