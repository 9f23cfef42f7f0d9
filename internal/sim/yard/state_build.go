package yard

import (
	"encoding/json"
	"sort"

	"stackyard.dev/internal/protocol"
)

// sendStates builds one STATE per session and pushes it on the session
// channel. Slow readers lose the oldest frame, never the newest.
func (y *Yard) sendStates(nowTick uint64) {
	crane := protocol.CraneObs{
		Bridge:   y.crane.Pos(entBridge).ToArray(),
		Hook:     y.crane.Pos(entHook).ToArray(),
		Payload:  y.crane.Pos(entPayload).ToArray(),
		Carrying: y.crane.carrying,
	}

	snap := y.ledger.Snapshot()
	cells := make([]protocol.CellObs, 0, len(snap))
	for _, e := range snap {
		cells = append(cells, protocol.CellObs{
			Bay:         e.Cell.Bay,
			Row:         e.Cell.Row,
			Tier:        e.Cell.Tier,
			ContainerID: e.ContainerID,
		})
	}
	ledger := protocol.LedgerObs{Rev: y.ledger.Rev(), Cells: cells}

	ids := make([]string, 0, len(y.containers))
	for id := range y.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	containers := make([]protocol.ContainerObs, 0, len(ids))
	for _, id := range ids {
		containers = append(containers, y.containerObs(y.containers[id]))
	}

	var op *protocol.OpObs
	if y.op != nil {
		op = &protocol.OpObs{
			OpID:        y.op.id,
			Kind:        y.op.kind,
			ContainerID: y.op.containerID,
			Stage:       y.op.stageIdx,
			Stages:      len(y.op.stages),
			Progress:    y.op.progress(nowTick),
			EtaTicks:    y.op.etaTicks(nowTick),
		}
	}

	for _, s := range y.sessions {
		msg := protocol.StateMsg{
			Type:            protocol.TypeState,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			SessionID:       s.ID,
			Crane:           crane,
			Ledger:          ledger,
			Containers:      containers,
			Op:              op,
			Events:          s.TakeEvents(),
		}
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(s.Out, b)
	}
}

// containerObs resolves the render position: on the hook while
// carried, in the gate lane while staged, at the footprint center
// once placed.
func (y *Yard) containerObs(c *Container) protocol.ContainerObs {
	obs := protocol.ContainerObs{
		ID:        c.ID,
		Size:      string(c.Size),
		Staged:    c.Staged(),
		GateIndex: -1,
	}
	if c.Staged() {
		obs.GateIndex = c.GateIndex
	} else {
		slot, tier := anchorOf(c.Cells)
		obs.Slot = slot.String()
		obs.Tier = tier
	}
	switch {
	case y.crane.carrying == c.ID:
		obs.Pos = y.crane.Pos(entPayload).ToArray()
	case c.Staged():
		obs.Pos = y.cfg.GatePosition(c.GateIndex).ToArray()
	default:
		obs.Pos = y.cfg.CellsCenter(c.Cells).ToArray()
	}
	return obs
}
