package yard

import (
	"fmt"

	"stackyard.dev/internal/protocol"
)

type PlacementPlan struct {
	Tier  int
	Cells []Cell
}

// footprintCells expands a slot into the cells a container of this size
// would hold at the given tier. A TwoUnit extends into row+1; past the
// last row there is no valid footprint.
func footprintCells(s Slot, size Size, tier int) ([]Cell, bool) {
	span := size.RowSpan()
	if s.Row+span-1 > NumRows {
		return nil, false
	}
	cells := make([]Cell, 0, span)
	for i := 0; i < span; i++ {
		cells = append(cells, Cell{Bay: s.Bay, Row: s.Row + i, Tier: tier})
	}
	return cells, true
}

// PlanPlacement decides tier and footprint for placing c at target, or
// explains why it cannot. Tier 1 is always preferred; tier 2 requires
// a free footprint resting on fully occupied tier-1 cells. The moving
// container's own cells count as free ground but never as support.
// No state is touched.
func PlanPlacement(led *Ledger, c *Container, target Slot) (PlacementPlan, *Denial) {
	ground, ok := footprintCells(target, c.Size, 1)
	if !ok {
		return PlacementPlan{}, deny(protocol.ErrEdgeOverflow,
			fmt.Sprintf("%s at %s extends past row %d", c.Size, target, NumRows))
	}
	if led.IsFree(ground, c.ID) {
		return PlacementPlan{Tier: 1, Cells: ground}, nil
	}

	upper, ok := footprintCells(target, c.Size, 2)
	if !ok {
		return PlacementPlan{}, deny(protocol.ErrEdgeOverflow,
			fmt.Sprintf("%s at %s extends past row %d", c.Size, target, NumRows))
	}
	if !led.IsFree(upper, c.ID) {
		return PlacementPlan{}, deny(protocol.ErrTargetOccupied,
			fmt.Sprintf("tier 2 at %s is occupied", target))
	}
	for _, cell := range upper {
		below, _ := cell.Below()
		id, occupied := led.OccupantAt(below)
		if !occupied || id == c.ID {
			return PlacementPlan{}, deny(protocol.ErrNoSupport,
				fmt.Sprintf("tier 2 at %s lacks support under %s", target, below.Slot()))
		}
	}
	return PlacementPlan{Tier: 2, Cells: upper}, nil
}
