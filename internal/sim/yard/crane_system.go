package yard

// startOpStage arms the legs of the current stage. Start positions are
// captured here, not at plan time, so a stage always departs from
// wherever the previous stage actually joined.
func (y *Yard) startOpStage(op *craneOp, startTick uint64) {
	op.active = op.active[:0]
	for _, lp := range op.stages[op.stageIdx] {
		op.active = append(op.active, y.crane.startLeg(lp.Entity, lp.To, lp.Ticks, startTick))
	}
}

// systemCrane advances the one in-flight operation by a tick. A stage
// joins when every leg is done; the next stage starts on the following
// tick. Any canceled leg aborts the whole operation.
func (y *Yard) systemCrane(nowTick uint64) {
	op := y.op
	if op == nil {
		return
	}

	allDone := true
	for _, l := range op.active {
		done, canceled := y.crane.advanceLeg(l, nowTick)
		if canceled {
			y.abortOp(nowTick, "crane leg canceled")
			return
		}
		if !done {
			allDone = false
		}
	}
	if !allDone {
		return
	}

	op.doneTicks += op.stageTicks(op.stageIdx)
	if op.stageIdx == op.attachAfter {
		// The payload joins the hook the moment the grab stage lands.
		y.crane.carrying = op.containerID
		y.crane.pos[entPayload] = y.crane.pos[entHook]
	}
	op.stageIdx++
	if op.stageIdx >= len(op.stages) {
		y.completeOp(nowTick)
		return
	}
	y.startOpStage(op, nowTick+1)
}

// completeOp commits the operation's ledger effect. This is the only
// place a crane operation mutates occupancy, and it runs exactly once,
// after the final stage joined.
func (y *Yard) completeOp(nowTick uint64) {
	op := y.op
	defer func() { y.op = nil }()

	y.crane.carrying = ""
	op.active = nil

	c := y.containers[op.containerID]
	if c == nil {
		return
	}
	prev := append([]Cell(nil), c.Cells...)
	y.ledger.Commit(c, op.newCells)
	if op.kind == OpRemove {
		c.GateIndex = op.gateIndex
	}
	added, removed := diffCells(prev, c.Cells)
	y.broadcast(evOpDone(nowTick, op, added, removed))
	y.stats.RecordCompleted(nowTick)
	y.logOp(nowTick, op, OutcomeCompleted, "")
}

// abortOp discards the operation without any ledger effect. The busy
// gate is released on every abort path.
func (y *Yard) abortOp(nowTick uint64, message string) {
	op := y.op
	if op == nil {
		return
	}
	defer func() { y.op = nil }()

	y.crane.cancelAll()
	y.crane.carrying = ""
	op.active = nil

	y.broadcast(evOpAborted(nowTick, op, message))
	y.stats.RecordAborted(nowTick)
	y.logOp(nowTick, op, OutcomeAborted, message)
}

func (y *Yard) logOp(nowTick uint64, op *craneOp, outcome, message string) {
	if y.opLogger == nil {
		return
	}
	e := OpLogEntry{
		Tick:        nowTick,
		OpID:        op.id,
		Kind:        op.kind,
		ContainerID: op.containerID,
		Outcome:     outcome,
		Ticks:       int(nowTick - op.startedTick),
		Message:     message,
	}
	if len(op.newCells) > 0 {
		slot, tier := anchorOf(op.newCells)
		e.Slot = slot.String()
		e.Tier = tier
	}
	if op.gateIndex >= 0 {
		e.GateIndex = op.gateIndex
	}
	_ = y.opLogger.WriteOp(e)
}
