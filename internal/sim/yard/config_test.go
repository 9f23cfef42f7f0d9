package yard

import (
	"math"
	"testing"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestApplyDefaults(t *testing.T) {
	cfg := YardConfig{}
	cfg.applyDefaults()
	if cfg.ID != "yard-1" {
		t.Fatalf("id = %q", cfg.ID)
	}
	if cfg.TickRateHz != 20 || cfg.StateEveryTicks != 1 {
		t.Fatalf("rates = %d/%d", cfg.TickRateHz, cfg.StateEveryTicks)
	}
	if cfg.CellW <= 0 || cfg.CellH <= 0 || cfg.CellD <= 0 {
		t.Fatalf("cell size not defaulted: %+v", cfg)
	}
	if cfg.BridgeSpeed <= 0 || cfg.HoistSpeed <= 0 || cfg.MinLegTicks < 1 {
		t.Fatalf("crane speeds not defaulted: %+v", cfg)
	}
}

func TestCellCenter(t *testing.T) {
	cfg := YardConfig{}
	cfg.applyDefaults()

	// A1 tier 1 sits half a cell above the origin, centered on it.
	c := cfg.CellCenter(Cell{Bay: 1, Row: 1, Tier: 1})
	if !almost(c.X, 0) || !almost(c.Y, cfg.CellH/2) || !almost(c.Z, 0) {
		t.Fatalf("A1 t1 center = %+v", c)
	}

	// C3 tier 2: two bays along x, two rows along z, one tier up.
	c = cfg.CellCenter(Cell{Bay: 3, Row: 3, Tier: 2})
	if !almost(c.X, 2*cfg.CellW) || !almost(c.Y, cfg.CellH+cfg.CellH/2) || !almost(c.Z, 2*cfg.CellD) {
		t.Fatalf("C3 t2 center = %+v", c)
	}
}

func TestCellsCenterMidpoint(t *testing.T) {
	cfg := YardConfig{}
	cfg.applyDefaults()

	cells := []Cell{{Bay: 1, Row: 1, Tier: 1}, {Bay: 1, Row: 2, Tier: 1}}
	mid := cfg.CellsCenter(cells)
	a := cfg.CellCenter(cells[0])
	b := cfg.CellCenter(cells[1])
	if !almost(mid.X, (a.X+b.X)/2) || !almost(mid.Y, (a.Y+b.Y)/2) || !almost(mid.Z, (a.Z+b.Z)/2) {
		t.Fatalf("midpoint = %+v, ends %+v %+v", mid, a, b)
	}
}

func TestGatePositionsSpacedAlongOneAxis(t *testing.T) {
	cfg := YardConfig{}
	cfg.applyDefaults()

	p0 := cfg.GatePosition(0)
	p1 := cfg.GatePosition(1)
	p5 := cfg.GatePosition(5)

	if !almost(p1.X-p0.X, cfg.GateSpacing) {
		t.Fatalf("spacing = %v, want %v", p1.X-p0.X, cfg.GateSpacing)
	}
	if !almost(p5.X-p0.X, 5*cfg.GateSpacing) {
		t.Fatalf("index 5 offset = %v", p5.X-p0.X)
	}
	if p0.Y != p1.Y || p0.Z != p1.Z || p0.Y != p5.Y || p0.Z != p5.Z {
		t.Fatalf("gate lane must vary along one axis only: %+v %+v %+v", p0, p1, p5)
	}
}
