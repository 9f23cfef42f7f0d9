package yard

type Size string

const (
	SizeOneUnit Size = "ONE_UNIT"
	SizeTwoUnit Size = "TWO_UNIT"
)

// RowSpan is how many consecutive rows the footprint covers.
func (s Size) RowSpan() int {
	if s == SizeTwoUnit {
		return 2
	}
	return 1
}

func ParseSize(text string) (Size, bool) {
	switch text {
	case string(SizeOneUnit):
		return SizeOneUnit, true
	case string(SizeTwoUnit):
		return SizeTwoUnit, true
	}
	return "", false
}

// Container lives for the whole session. Staged means it rests in the
// gate lane with no cells; placed means Cells names its footprint and
// the ledger mirrors it exactly.
type Container struct {
	ID   string
	Size Size

	Cells []Cell // empty while staged

	// GateIndex is assigned at each (re)staging and never reused while
	// the container stays staged.
	GateIndex int
}

func (c *Container) Staged() bool {
	return len(c.Cells) == 0
}

// Anchor reports the lowest-row cell of a placed footprint, which is
// the slot named in placement requests.
func (c *Container) Anchor() (Slot, int, bool) {
	if c.Staged() {
		return Slot{}, 0, false
	}
	slot, tier := anchorOf(c.Cells)
	return slot, tier, true
}

func anchorOf(cells []Cell) (Slot, int) {
	best := cells[0]
	for _, cell := range cells[1:] {
		if cellLess(cell, best) {
			best = cell
		}
	}
	return best.Slot(), best.Tier
}
