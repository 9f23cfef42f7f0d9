package yard

import "sort"

// Ledger is the authoritative occupancy record: cell -> container id.
// It mirrors Container.Cells exactly in both directions, and the only
// mutator is Commit, which runs once per completed crane operation.
type Ledger struct {
	cells map[Cell]string
	rev   uint64
}

func NewLedger() *Ledger {
	return &Ledger{cells: map[Cell]string{}}
}

// Rev bumps once per commit.
func (l *Ledger) Rev() uint64 { return l.rev }

func (l *Ledger) Len() int { return len(l.cells) }

func (l *Ledger) OccupantAt(cell Cell) (string, bool) {
	id, ok := l.cells[cell]
	return id, ok
}

// IsFree reports whether every cell is unoccupied, treating cells held
// by except as free so a container can re-check its own footprint.
func (l *Ledger) IsFree(cells []Cell, except string) bool {
	for _, cell := range cells {
		id, ok := l.cells[cell]
		if ok && id != except {
			return false
		}
	}
	return true
}

// OccupantsAbove returns the distinct container ids resting directly on
// top of cell, sorted. The cell's own occupant never counts. Top-tier
// cells have nothing above.
func (l *Ledger) OccupantsAbove(cell Cell) []string {
	above, ok := cell.Above()
	if !ok {
		return nil
	}
	id, ok := l.cells[above]
	if !ok {
		return nil
	}
	if own, has := l.cells[cell]; has && own == id {
		return nil
	}
	return []string{id}
}

// Commit atomically moves c from its previous footprint to newCells,
// updating both the cell map and c.Cells in one step. An empty newCells
// clears the footprint (removal back to the gate).
func (l *Ledger) Commit(c *Container, newCells []Cell) {
	for _, cell := range c.Cells {
		delete(l.cells, cell)
	}
	c.Cells = append(c.Cells[:0:0], newCells...)
	for _, cell := range newCells {
		l.cells[cell] = c.ID
	}
	l.rev++
}

type CellEntry struct {
	Cell        Cell
	ContainerID string
}

// Snapshot returns the occupancy in deterministic cell order.
func (l *Ledger) Snapshot() []CellEntry {
	out := make([]CellEntry, 0, len(l.cells))
	for cell, id := range l.cells {
		out = append(out, CellEntry{Cell: cell, ContainerID: id})
	}
	sort.Slice(out, func(i, j int) bool { return cellLess(out[i].Cell, out[j].Cell) })
	return out
}
