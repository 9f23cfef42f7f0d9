package yard

import "fmt"

// Grid bounds. The yard is a fixed 3x3 block of slots stacked two high.
const (
	NumBays  = 3
	NumRows  = 3
	NumTiers = 2
)

// Slot is a ground address like "B2": bay letter, row digit. 1-based.
type Slot struct {
	Bay int
	Row int
}

// Cell is one occupiable unit of the grid: a slot at a tier.
type Cell struct {
	Bay  int
	Row  int
	Tier int
}

// ParseSlot accepts exactly one bay letter A-C and one row digit 1-3,
// case-insensitive. Anything else is rejected.
func ParseSlot(text string) (Slot, bool) {
	if len(text) != 2 {
		return Slot{}, false
	}
	b := text[0]
	switch {
	case b >= 'A' && b <= 'A'+NumBays-1:
		b -= 'A'
	case b >= 'a' && b <= 'a'+NumBays-1:
		b -= 'a'
	default:
		return Slot{}, false
	}
	r := text[1]
	if r < '1' || r > '0'+NumRows {
		return Slot{}, false
	}
	return Slot{Bay: int(b) + 1, Row: int(r - '0')}, true
}

func (s Slot) String() string {
	return fmt.Sprintf("%c%d", 'A'+s.Bay-1, s.Row)
}

func (s Slot) Valid() bool {
	return s.Bay >= 1 && s.Bay <= NumBays && s.Row >= 1 && s.Row <= NumRows
}

func (c Cell) Slot() Slot {
	return Slot{Bay: c.Bay, Row: c.Row}
}

func (c Cell) Above() (Cell, bool) {
	if c.Tier >= NumTiers {
		return Cell{}, false
	}
	return Cell{Bay: c.Bay, Row: c.Row, Tier: c.Tier + 1}, true
}

func (c Cell) Below() (Cell, bool) {
	if c.Tier <= 1 {
		return Cell{}, false
	}
	return Cell{Bay: c.Bay, Row: c.Row, Tier: c.Tier - 1}, true
}

func cellLess(a, b Cell) bool {
	if a.Bay != b.Bay {
		return a.Bay < b.Bay
	}
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Tier < b.Tier
}
