package yard

import "stackyard.dev/internal/protocol"

func actionResult(tick uint64, ref string, ok bool, code string, message string) protocol.Event {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
		if message == "" {
			message = "unknown error code"
		}
	}
	e := protocol.Event{
		"t":    tick,
		"type": "ACTION_RESULT",
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}

func cellMap(c Cell) map[string]interface{} {
	return map[string]interface{}{"bay": c.Bay, "row": c.Row, "tier": c.Tier}
}

func cellMaps(cells []Cell) []interface{} {
	out := make([]interface{}, 0, len(cells))
	for _, c := range cells {
		out = append(out, cellMap(c))
	}
	return out
}

func evContainerAdmitted(tick uint64, c *Container) protocol.Event {
	return protocol.Event{
		"t":            tick,
		"type":         "CONTAINER_ADMITTED",
		"container_id": c.ID,
		"size":         string(c.Size),
		"gate_index":   c.GateIndex,
	}
}

// evOpStarted carries the full leg list so renderers can stage the
// whole animation up front: entity, target, duration, stage index.
func evOpStarted(tick uint64, op *craneOp) protocol.Event {
	legs := make([]interface{}, 0, 8)
	for si, stage := range op.stages {
		for _, lp := range stage {
			legs = append(legs, map[string]interface{}{
				"entity": lp.Entity.String(),
				"to":     lp.To.ToArray(),
				"ticks":  lp.Ticks,
				"stage":  si,
			})
		}
	}
	return protocol.Event{
		"t":            tick,
		"type":         "OP_STARTED",
		"op_id":        op.id,
		"kind":         op.kind,
		"container_id": op.containerID,
		"total_ticks":  op.totalTicks,
		"legs":         legs,
	}
}

// evOpDone carries the occupancy delta of the commit.
func evOpDone(tick uint64, op *craneOp, added, removed []Cell) protocol.Event {
	return protocol.Event{
		"t":            tick,
		"type":         "OP_DONE",
		"op_id":        op.id,
		"kind":         op.kind,
		"container_id": op.containerID,
		"added":        cellMaps(added),
		"removed":      cellMaps(removed),
	}
}

func evOpAborted(tick uint64, op *craneOp, message string) protocol.Event {
	return protocol.Event{
		"t":            tick,
		"type":         "OP_ABORTED",
		"op_id":        op.id,
		"kind":         op.kind,
		"container_id": op.containerID,
		"code":         protocol.ErrOpAborted,
		"message":      message,
	}
}
