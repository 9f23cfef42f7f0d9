package yard

import "context"

// RequestAbortOp asks the loop to abort the in-flight operation at the
// next tick boundary and reports whether one was aborted. It is safe to
// call from other goroutines (e.g. HTTP handlers).
func (y *Yard) RequestAbortOp(ctx context.Context) (bool, error) {
	resp := make(chan bool, 1)

	select {
	case y.abort <- abortOpReq{Resp: resp}:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case ok := <-resp:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// ---- Debug/Test Helpers ----
//
// These helpers exist to allow black-box tests in sibling packages
// (e.g. internal/sim/yardtest) to set up deterministic preconditions
// and inspect outcomes without reaching into yard internals.
//
// They are NOT safe to call concurrently with Run(). Prefer using them
// only in tests that drive the yard via StepOnce(), from a single
// goroutine.

// DebugStateDigest returns the current yard digest for the given tick label.
func (y *Yard) DebugStateDigest(nowTick uint64) string {
	return y.stateDigest(nowTick)
}

func (y *Yard) DebugLedgerRev() uint64 { return y.ledger.Rev() }

func (y *Yard) DebugLedgerSnapshot() []CellEntry { return y.ledger.Snapshot() }

func (y *Yard) DebugContainer(id string) (Container, bool) {
	c := y.containers[id]
	if c == nil {
		return Container{}, false
	}
	out := *c
	out.Cells = append([]Cell(nil), c.Cells...)
	return out, true
}

func (y *Yard) DebugCranePose() (bridge, hook, payload Vec3, carrying string) {
	return y.crane.pos[entBridge], y.crane.pos[entHook], y.crane.pos[entPayload], y.crane.carrying
}

func (y *Yard) DebugOpInFlight() (opID, kind string, ok bool) {
	if y.op == nil {
		return "", "", false
	}
	return y.op.id, y.op.kind, true
}

// DebugAbortOp aborts the in-flight operation from the loop thread.
// The channel path for live servers is RequestAbortOp.
func (y *Yard) DebugAbortOp(message string) bool {
	if y.op == nil {
		return false
	}
	y.abortOp(y.tick.Load(), message)
	return true
}

// DebugCommitFootprint force-commits a footprint directly, bypassing
// crane motion and placement validation. Test setup only.
func (y *Yard) DebugCommitFootprint(id string, cells []Cell) bool {
	c := y.containers[id]
	if c == nil {
		return false
	}
	y.ledger.Commit(c, cells)
	return true
}
