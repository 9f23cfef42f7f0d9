package protocol

// STATE (server -> client)
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	SessionID       string `json:"session_id"`

	Crane      CraneObs       `json:"crane"`
	Ledger     LedgerObs      `json:"ledger"`
	Containers []ContainerObs `json:"containers"`
	Op         *OpObs         `json:"op,omitempty"`
	Events     []Event        `json:"events"`
}

type CraneObs struct {
	Bridge   [3]float64 `json:"bridge"`
	Hook     [3]float64 `json:"hook"`
	Payload  [3]float64 `json:"payload"`
	Carrying string     `json:"carrying,omitempty"` // container id on the hook
}

// LedgerObs is the occupancy snapshot. Rev bumps once per commit, so
// HUD clients can skip unchanged grids.
type LedgerObs struct {
	Rev   uint64    `json:"rev"`
	Cells []CellObs `json:"cells"`
}

type CellObs struct {
	Bay         int    `json:"bay"`
	Row         int    `json:"row"`
	Tier        int    `json:"tier"`
	ContainerID string `json:"container_id"`
}

type ContainerObs struct {
	ID     string `json:"id"`
	Size   string `json:"size"`
	Staged bool   `json:"staged"`

	// GateIndex is the gate lane spot while staged, -1 once placed.
	GateIndex int        `json:"gate_index"`
	Slot      string     `json:"slot,omitempty"` // anchor slot when placed, e.g. "B2"
	Tier      int        `json:"tier,omitempty"`
	Pos       [3]float64 `json:"pos"`
}

// OpObs reports the in-flight crane operation, if any.
type OpObs struct {
	OpID        string  `json:"op_id"`
	Kind        string  `json:"kind"` // "PLACE" or "REMOVE"
	ContainerID string  `json:"container_id"`
	Stage       int     `json:"stage"`
	Stages      int     `json:"stages"`
	Progress    float64 `json:"progress"`
	EtaTicks    int     `json:"eta_ticks"`
}

type Event map[string]interface{}

// CMD (client -> server)
type CmdMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	SessionID       string  `json:"session_id"`
	Requests        []OpReq `json:"requests,omitempty"`
}

// Request types.
const (
	ReqTypeAdmit  = "ADMIT"
	ReqTypePlace  = "PLACE"
	ReqTypeRemove = "REMOVE"
)

type OpReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Size        string `json:"size,omitempty"`         // ADMIT: ONE_UNIT or TWO_UNIT
	ContainerID string `json:"container_id,omitempty"` // PLACE, REMOVE
	Slot        string `json:"slot,omitempty"`         // PLACE: e.g. "B2"
}
