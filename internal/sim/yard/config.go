package yard

type YardConfig struct {
	ID         string
	TickRateHz int

	// StateEveryTicks controls how often STATE messages go out (1 = every tick).
	StateEveryTicks int

	// Geometry, in yard units. Bays run along x, rows along z, tiers along y.
	CellW float64
	CellH float64
	CellD float64

	Origin      Vec3 // center of the A1 tier-1 cell at ground level
	GateBase    Vec3 // ground point of gate index 0
	GateSpacing float64
	TravelY     float64 // bridge rail height

	// Crane motion, in yard units per tick.
	BridgeSpeed float64
	HoistSpeed  float64
	MinLegTicks int
}

func (c *YardConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "yard-1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 20
	}
	if c.StateEveryTicks <= 0 {
		c.StateEveryTicks = 1
	}
	if c.CellW <= 0 {
		c.CellW = 2.6
	}
	if c.CellH <= 0 {
		c.CellH = 2.6
	}
	if c.CellD <= 0 {
		c.CellD = 2.6
	}
	if c.GateBase == (Vec3{}) {
		c.GateBase = Vec3{X: -6, Y: 0, Z: 10}
	}
	if c.GateSpacing <= 0 {
		c.GateSpacing = 3
	}
	if c.TravelY <= 0 {
		c.TravelY = 9
	}
	if c.BridgeSpeed <= 0 {
		c.BridgeSpeed = 0.25
	}
	if c.HoistSpeed <= 0 {
		c.HoistSpeed = 0.2
	}
	if c.MinLegTicks <= 0 {
		c.MinLegTicks = 4
	}
}

// CellCenter returns the center point of a cell's volume.
func (c *YardConfig) CellCenter(cell Cell) Vec3 {
	return Vec3{
		X: c.Origin.X + float64(cell.Bay-1)*c.CellW,
		Y: c.Origin.Y + float64(cell.Tier-1)*c.CellH + c.CellH/2,
		Z: c.Origin.Z + float64(cell.Row-1)*c.CellD,
	}
}

// CellsCenter returns the midpoint of a footprint (a TwoUnit spans two cells).
func (c *YardConfig) CellsCenter(cells []Cell) Vec3 {
	if len(cells) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, cell := range cells {
		sum = sum.Add(c.CellCenter(cell))
	}
	return sum.Scale(1 / float64(len(cells)))
}

// GatePosition returns the resting center of a staged container.
// Indexes grow monotonically, so the lane extends along x and never
// reuses a spot while its container is staged.
func (c *YardConfig) GatePosition(index int) Vec3 {
	return Vec3{
		X: c.GateBase.X + float64(index)*c.GateSpacing,
		Y: c.GateBase.Y + c.CellH/2,
		Z: c.GateBase.Z,
	}
}
