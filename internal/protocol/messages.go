package protocol

// Client roles.
const (
	RoleDriver = "driver"
	RoleViewer = "viewer"
)

// Container size classes.
const (
	SizeOneUnit = "ONE_UNIT"
	SizeTwoUnit = "TWO_UNIT"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	Role            string `json:"role,omitempty"` // "driver" (default) or "viewer"
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id"`
	Role            string     `json:"role"`
	YardParams      YardParams `json:"yard_params"`
}

type YardParams struct {
	TickRateHz  int        `json:"tick_rate_hz"`
	Bays        int        `json:"bays"`
	Rows        int        `json:"rows"`
	Tiers       int        `json:"tiers"`
	CellSize    [3]float64 `json:"cell_size"` // x width, y height, z depth
	YardOrigin  [3]float64 `json:"yard_origin"`
	GateBase    [3]float64 `json:"gate_base"`
	GateSpacing float64    `json:"gate_spacing"`
	TravelY     float64    `json:"travel_y"`
}
