package yard

import (
	"fmt"
	"math"
)

// Operation kinds.
const (
	OpPlace  = "PLACE"
	OpRemove = "REMOVE"
)

// Operation outcomes, as logged.
const (
	OutcomeCompleted = "COMPLETED"
	OutcomeAborted   = "ABORTED"
)

type legPlan struct {
	Entity craneEntity
	To     Vec3
	Ticks  int
}

// craneOp is one fork/join sequence. Stages run in order; the legs of
// a stage start together and the stage joins when every leg resolves.
// The ledger commit is the terminal effect and runs only after the
// final stage joins; an aborted op leaves the ledger untouched.
type craneOp struct {
	id          string
	kind        string
	containerID string

	stages   [][]legPlan
	stageIdx int
	active   []*Leg

	attachAfter int    // payload attaches to the hook when this stage joins
	newCells    []Cell // commit footprint; nil commits a removal
	gateIndex   int    // restaging index for removals, -1 otherwise

	startedTick uint64
	totalTicks  int
	doneTicks   int
}

func (y *Yard) newCraneOp(kind string, containerID string, nowTick uint64) *craneOp {
	n := y.nextOpNum.Add(1)
	return &craneOp{
		id:          fmt.Sprintf("op_%06d", n),
		kind:        kind,
		containerID: containerID,
		gateIndex:   -1,
		startedTick: nowTick,
	}
}

// travelTicks sizes a move between two points: horizontal distance at
// bridge speed, vertical at hoist speed, whichever takes longer.
func (c *YardConfig) travelTicks(from, to Vec3) int {
	h := math.Hypot(to.X-from.X, to.Z-from.Z)
	v := math.Abs(to.Y - from.Y)
	th := legTicks(h, c.BridgeSpeed, c.MinLegTicks)
	tv := legTicks(v, c.HoistSpeed, c.MinLegTicks)
	if th > tv {
		return th
	}
	return tv
}

// plan lays out the standard pickup/travel/drop choreography from the
// crane's current pose: ride over the source, lower the hook, hoist
// hook and payload together, travel, lower, then free the hook. Legs
// within a stage share the longest duration so coupled entities join
// at the same tick.
func (op *craneOp) plan(cfg *YardConfig, cr *Crane, src, dst Vec3) {
	overSrc := Vec3{X: src.X, Y: cfg.TravelY, Z: src.Z}
	overDst := Vec3{X: dst.X, Y: cfg.TravelY, Z: dst.Z}

	add := func(legs ...legPlan) {
		most := 0
		for _, l := range legs {
			if l.Ticks > most {
				most = l.Ticks
			}
		}
		for i := range legs {
			legs[i].Ticks = most
		}
		op.stages = append(op.stages, legs)
		op.totalTicks += most
	}

	add(
		legPlan{Entity: entBridge, To: overSrc, Ticks: cfg.travelTicks(cr.Pos(entBridge), overSrc)},
		legPlan{Entity: entHook, To: overSrc, Ticks: cfg.travelTicks(cr.Pos(entHook), overSrc)},
	)
	add(legPlan{Entity: entHook, To: src, Ticks: cfg.travelTicks(overSrc, src)})
	op.attachAfter = 1
	add(
		legPlan{Entity: entHook, To: overSrc, Ticks: cfg.travelTicks(src, overSrc)},
		legPlan{Entity: entPayload, To: overSrc, Ticks: cfg.travelTicks(src, overSrc)},
	)
	add(
		legPlan{Entity: entBridge, To: overDst, Ticks: cfg.travelTicks(overSrc, overDst)},
		legPlan{Entity: entHook, To: overDst, Ticks: cfg.travelTicks(overSrc, overDst)},
		legPlan{Entity: entPayload, To: overDst, Ticks: cfg.travelTicks(overSrc, overDst)},
	)
	add(
		legPlan{Entity: entHook, To: dst, Ticks: cfg.travelTicks(overDst, dst)},
		legPlan{Entity: entPayload, To: dst, Ticks: cfg.travelTicks(overDst, dst)},
	)
	add(legPlan{Entity: entHook, To: overDst, Ticks: cfg.travelTicks(dst, overDst)})
}

func (op *craneOp) stageTicks(idx int) int {
	if idx < 0 || idx >= len(op.stages) || len(op.stages[idx]) == 0 {
		return 0
	}
	return op.stages[idx][0].Ticks
}

// progress is completed work over planned work, in ticks.
func (op *craneOp) progress(nowTick uint64) float64 {
	if op.totalTicks <= 0 {
		return 1
	}
	done := op.doneTicks
	if len(op.active) > 0 {
		l := op.active[0]
		if nowTick >= l.startTick {
			elapsed := int(nowTick - l.startTick + 1)
			if elapsed > l.Ticks {
				elapsed = l.Ticks
			}
			done += elapsed
		}
	}
	p := float64(done) / float64(op.totalTicks)
	if p > 1 {
		p = 1
	}
	return p
}

func (op *craneOp) etaTicks(nowTick uint64) int {
	rem := op.totalTicks - op.doneTicks
	if len(op.active) > 0 {
		l := op.active[0]
		if nowTick >= l.startTick {
			elapsed := int(nowTick - l.startTick + 1)
			if elapsed > l.Ticks {
				elapsed = l.Ticks
			}
			rem -= elapsed
		}
	}
	if rem < 0 {
		rem = 0
	}
	return rem
}

// srcCenter is where the crane grabs a container: its footprint center
// when placed, its gate spot when staged.
func (y *Yard) srcCenter(c *Container) Vec3 {
	if c.Staged() {
		return y.cfg.GatePosition(c.GateIndex)
	}
	return y.cfg.CellsCenter(c.Cells)
}

func diffCells(prev, next []Cell) (added, removed []Cell) {
	in := func(set []Cell, c Cell) bool {
		for _, s := range set {
			if s == c {
				return true
			}
		}
		return false
	}
	for _, c := range next {
		if !in(prev, c) {
			added = append(added, c)
		}
	}
	for _, c := range prev {
		if !in(next, c) {
			removed = append(removed, c)
		}
	}
	return added, removed
}
