package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz      int `yaml:"tick_rate_hz"`
	StateEveryTicks int `yaml:"state_every_ticks"`

	Geometry Geometry `yaml:"geometry"`
	Crane    Crane    `yaml:"crane"`
}

// Geometry positions the slot grid and the gate lane in yard units.
// Bays run along x, rows along z, tiers along y.
type Geometry struct {
	CellWidth  float64 `yaml:"cell_width"`
	CellHeight float64 `yaml:"cell_height"`
	CellDepth  float64 `yaml:"cell_depth"`

	YardOrigin  []float64 `yaml:"yard_origin"`
	GateBase    []float64 `yaml:"gate_base"`
	GateSpacing float64   `yaml:"gate_spacing"`
	TravelY     float64   `yaml:"travel_y"`
}

type Crane struct {
	BridgeSpeed float64 `yaml:"bridge_speed"` // yard units per tick
	HoistSpeed  float64 `yaml:"hoist_speed"`  // yard units per tick
	MinLegTicks int     `yaml:"min_leg_ticks"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Defaults mirrors configs/tuning.yaml for runs without a config tree.
func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      20,
		StateEveryTicks: 1,
		Geometry: Geometry{
			CellWidth:   2.6,
			CellHeight:  2.6,
			CellDepth:   2.6,
			YardOrigin:  []float64{0, 0, 0},
			GateBase:    []float64{-6, 0, 10},
			GateSpacing: 3,
			TravelY:     9,
		},
		Crane: Crane{
			BridgeSpeed: 0.25,
			HoistSpeed:  0.2,
			MinLegTicks: 4,
		},
	}
}
