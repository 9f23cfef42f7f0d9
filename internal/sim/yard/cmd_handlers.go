package yard

import (
	"fmt"

	"stackyard.dev/internal/protocol"
)

func (y *Yard) nextGateIndex() int {
	idx := y.nextGateIdx
	y.nextGateIdx++
	return idx
}

// applyCmd runs every request in the envelope, in order. Each request
// gets its own ACTION_RESULT; a denied request never blocks the ones
// after it.
func (y *Yard) applyCmd(s *Session, cmd protocol.CmdMsg, nowTick uint64) {
	for _, req := range cmd.Requests {
		if s.Role != protocol.RoleDriver {
			s.AddEvent(actionResult(nowTick, req.ID, false, protocol.ErrBadRequest, "viewer sessions cannot submit requests"))
			continue
		}
		switch req.Type {
		case protocol.ReqTypeAdmit:
			y.handleAdmit(s, req, nowTick)
		case protocol.ReqTypePlace:
			y.handlePlace(s, req, nowTick)
		case protocol.ReqTypeRemove:
			y.handleRemove(s, req, nowTick)
		default:
			s.AddEvent(actionResult(nowTick, req.ID, false, protocol.ErrBadRequest, fmt.Sprintf("unknown request type %q", req.Type)))
		}
	}
}

func (y *Yard) denyReq(s *Session, nowTick uint64, ref string, d *Denial) {
	ev := actionResult(nowTick, ref, false, d.Code, d.Message)
	if len(d.Blockers) > 0 {
		ev["blockers"] = d.Blockers
	}
	s.AddEvent(ev)
	y.stats.RecordDenied(nowTick)
}

// handleAdmit registers a new container in the gate lane. Admission
// never touches the ledger or the crane, so it is allowed while an
// operation is in flight.
func (y *Yard) handleAdmit(s *Session, req protocol.OpReq, nowTick uint64) {
	size, ok := ParseSize(req.Size)
	if !ok {
		s.AddEvent(actionResult(nowTick, req.ID, false, protocol.ErrBadRequest, fmt.Sprintf("size must be %s or %s", protocol.SizeOneUnit, protocol.SizeTwoUnit)))
		y.stats.RecordDenied(nowTick)
		return
	}

	id := fmt.Sprintf("C%d", y.nextContainerNum.Add(1))
	c := &Container{ID: id, Size: size, GateIndex: y.nextGateIndex()}
	y.containers[id] = c

	y.stats.RecordAdmitted(nowTick)
	y.broadcast(evContainerAdmitted(nowTick, c))

	ev := actionResult(nowTick, req.ID, true, "", "")
	ev["container_id"] = c.ID
	ev["gate_index"] = c.GateIndex
	s.AddEvent(ev)
}

func (y *Yard) handlePlace(s *Session, req protocol.OpReq, nowTick uint64) {
	if y.op != nil {
		y.denyReq(s, nowTick, req.ID, deny(protocol.ErrOpInProgress, fmt.Sprintf("operation %s is in flight", y.op.id)))
		return
	}
	if req.ContainerID == "" {
		y.denyReq(s, nowTick, req.ID, deny(protocol.ErrNoActiveContainer, "no container named in request"))
		return
	}
	c := y.containers[req.ContainerID]
	if c == nil {
		y.denyReq(s, nowTick, req.ID, deny(protocol.ErrContainerNotFound, fmt.Sprintf("unknown container %q", req.ContainerID)))
		return
	}
	slot, ok := ParseSlot(req.Slot)
	if !ok {
		y.denyReq(s, nowTick, req.ID, deny(protocol.ErrBadSlot, fmt.Sprintf("bad slot %q", req.Slot)))
		return
	}

	// Moving a placed container is a removal and a placement in one;
	// it has to clear the removal rules before the target is planned.
	if !c.Staged() {
		if d := ValidateRemoval(y.ledger, c); d != nil {
			y.denyReq(s, nowTick, req.ID, d)
			return
		}
	}
	plan, d := PlanPlacement(y.ledger, c, slot)
	if d != nil {
		y.denyReq(s, nowTick, req.ID, d)
		return
	}

	op := y.newCraneOp(OpPlace, c.ID, nowTick)
	op.newCells = plan.Cells
	op.plan(&y.cfg, y.crane, y.srcCenter(c), y.cfg.CellsCenter(plan.Cells))
	y.op = op
	y.startOpStage(op, nowTick)

	ev := actionResult(nowTick, req.ID, true, "", "")
	ev["op_id"] = op.id
	ev["tier"] = plan.Tier
	s.AddEvent(ev)
	y.broadcast(evOpStarted(nowTick, op))
}

func (y *Yard) handleRemove(s *Session, req protocol.OpReq, nowTick uint64) {
	if y.op != nil {
		y.denyReq(s, nowTick, req.ID, deny(protocol.ErrOpInProgress, fmt.Sprintf("operation %s is in flight", y.op.id)))
		return
	}
	if req.ContainerID == "" {
		y.denyReq(s, nowTick, req.ID, deny(protocol.ErrBadRequest, "container_id is required"))
		return
	}
	c := y.containers[req.ContainerID]
	if c == nil {
		y.denyReq(s, nowTick, req.ID, deny(protocol.ErrContainerNotFound, fmt.Sprintf("unknown container %q", req.ContainerID)))
		return
	}
	if c.Staged() {
		y.denyReq(s, nowTick, req.ID, deny(protocol.ErrBadRequest, fmt.Sprintf("container %s is not placed", c.ID)))
		return
	}
	if d := ValidateRemoval(y.ledger, c); d != nil {
		y.denyReq(s, nowTick, req.ID, d)
		return
	}

	op := y.newCraneOp(OpRemove, c.ID, nowTick)
	op.gateIndex = y.nextGateIndex()
	op.plan(&y.cfg, y.crane, y.cfg.CellsCenter(c.Cells), y.cfg.GatePosition(op.gateIndex))
	y.op = op
	y.startOpStage(op, nowTick)

	ev := actionResult(nowTick, req.ID, true, "", "")
	ev["op_id"] = op.id
	ev["gate_index"] = op.gateIndex
	s.AddEvent(ev)
	y.broadcast(evOpStarted(nowTick, op))
}
