package yard

import "testing"

func TestPlanChoreographyShape(t *testing.T) {
	cfg := &YardConfig{}
	cfg.applyDefaults()
	cr := NewCrane(cfg)

	src := cfg.GatePosition(0)
	dst := cfg.CellCenter(Cell{Bay: 2, Row: 2, Tier: 1})

	op := &craneOp{id: "op_000001", kind: OpPlace, containerID: "C1", gateIndex: -1}
	op.plan(cfg, cr, src, dst)

	if len(op.stages) != 6 {
		t.Fatalf("stages = %d, want 6", len(op.stages))
	}
	if op.attachAfter != 1 {
		t.Fatalf("attachAfter = %d, want 1", op.attachAfter)
	}

	wantLegs := []int{2, 1, 2, 3, 2, 1}
	for i, stage := range op.stages {
		if len(stage) != wantLegs[i] {
			t.Fatalf("stage %d has %d legs, want %d", i, len(stage), wantLegs[i])
		}
	}

	// Coupled entities share one duration per stage.
	total := 0
	for i, stage := range op.stages {
		first := stage[0].Ticks
		if first < cfg.MinLegTicks {
			t.Fatalf("stage %d duration %d under minimum", i, first)
		}
		for _, l := range stage {
			if l.Ticks != first {
				t.Fatalf("stage %d mixes durations %d and %d", i, first, l.Ticks)
			}
		}
		total += first
	}
	if op.totalTicks != total {
		t.Fatalf("totalTicks = %d, want %d", op.totalTicks, total)
	}
}

func TestPlanEndsWithHookFreeOverTarget(t *testing.T) {
	cfg := &YardConfig{}
	cfg.applyDefaults()
	cr := NewCrane(cfg)

	src := cfg.GatePosition(2)
	dst := cfg.CellCenter(Cell{Bay: 1, Row: 3, Tier: 1})

	op := &craneOp{id: "op_000002", kind: OpPlace, containerID: "C1", gateIndex: -1}
	op.plan(cfg, cr, src, dst)

	// The drop stage parks the payload exactly on the target.
	drop := op.stages[4]
	var payloadTo *Vec3
	for _, l := range drop {
		if l.Entity == entPayload {
			to := l.To
			payloadTo = &to
		}
	}
	if payloadTo == nil || *payloadTo != dst {
		t.Fatalf("payload drop target = %+v, want %+v", payloadTo, dst)
	}

	// The final stage lifts only the hook, back to travel height.
	last := op.stages[len(op.stages)-1]
	if len(last) != 1 || last[0].Entity != entHook {
		t.Fatalf("final stage = %+v, want lone hook leg", last)
	}
	if last[0].To.Y != cfg.TravelY {
		t.Fatalf("hook parks at y=%v, want travel height %v", last[0].To.Y, cfg.TravelY)
	}
}

func TestOpProgressBounds(t *testing.T) {
	cfg := &YardConfig{}
	cfg.applyDefaults()
	cr := NewCrane(cfg)

	op := &craneOp{id: "op_000003", kind: OpRemove, containerID: "C1", gateIndex: 4}
	op.plan(cfg, cr, cfg.CellCenter(Cell{Bay: 3, Row: 3, Tier: 2}), cfg.GatePosition(4))

	if p := op.progress(0); p != 0 {
		t.Fatalf("progress before any work = %v", p)
	}
	if eta := op.etaTicks(0); eta != op.totalTicks {
		t.Fatalf("eta = %d, want %d", eta, op.totalTicks)
	}

	op.doneTicks = op.totalTicks
	if p := op.progress(0); p != 1 {
		t.Fatalf("progress after all work = %v", p)
	}
	if eta := op.etaTicks(0); eta != 0 {
		t.Fatalf("eta after all work = %d", eta)
	}
}

func TestDiffCells(t *testing.T) {
	prev := []Cell{{Bay: 1, Row: 1, Tier: 1}, {Bay: 1, Row: 2, Tier: 1}}
	next := []Cell{{Bay: 1, Row: 2, Tier: 1}, {Bay: 2, Row: 2, Tier: 1}}
	added, removed := diffCells(prev, next)
	if len(added) != 1 || added[0] != (Cell{Bay: 2, Row: 2, Tier: 1}) {
		t.Fatalf("added = %+v", added)
	}
	if len(removed) != 1 || removed[0] != (Cell{Bay: 1, Row: 1, Tier: 1}) {
		t.Fatalf("removed = %+v", removed)
	}
}
