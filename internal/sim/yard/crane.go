package yard

import (
	"math"

	"stackyard.dev/internal/sim/mathx"
)

type craneEntity int

const (
	entBridge craneEntity = iota
	entHook
	entPayload
	numEntities
)

func (e craneEntity) String() string {
	switch e {
	case entBridge:
		return "bridge"
	case entHook:
		return "hook"
	case entPayload:
		return "payload"
	}
	return "?"
}

// Leg is one motion of one entity. The target and duration are fixed
// when the operation is planned; the start position is captured when
// the leg's stage begins. Progress advances only with the yard tick.
type Leg struct {
	Entity craneEntity
	From   Vec3
	To     Vec3
	Ticks  int

	gen       uint64
	startTick uint64
	done      bool
	canceled  bool
}

// Crane holds the three motion entities. Every entity carries a
// generation counter: starting a leg bumps it, so an older leg still in
// flight on the same entity resolves canceled without reaching its
// target and without its completion effect.
type Crane struct {
	pos      [numEntities]Vec3
	gen      [numEntities]uint64
	carrying string // container id on the hook, "" when idle
}

func NewCrane(cfg *YardConfig) *Crane {
	home := Vec3{X: cfg.Origin.X, Y: cfg.TravelY, Z: cfg.Origin.Z}
	cr := &Crane{}
	for e := craneEntity(0); e < numEntities; e++ {
		cr.pos[e] = home
	}
	return cr
}

func (cr *Crane) Pos(e craneEntity) Vec3 { return cr.pos[e] }
func (cr *Crane) Carrying() string       { return cr.carrying }

func (cr *Crane) startLeg(e craneEntity, to Vec3, ticks int, startTick uint64) *Leg {
	if ticks < 1 {
		ticks = 1
	}
	cr.gen[e]++
	return &Leg{Entity: e, From: cr.pos[e], To: to, Ticks: ticks, gen: cr.gen[e], startTick: startTick}
}

// advanceLeg moves the entity along its eased path for nowTick. Done
// means the entity sits exactly on the target. A stale generation
// resolves canceled immediately, leaving the position where it was.
func (cr *Crane) advanceLeg(l *Leg, nowTick uint64) (done, canceled bool) {
	if l.done || l.canceled {
		return l.done, l.canceled
	}
	if l.gen != cr.gen[l.Entity] {
		l.canceled = true
		return false, true
	}
	if nowTick < l.startTick {
		return false, false
	}
	elapsed := nowTick - l.startTick + 1
	t := float64(elapsed) / float64(l.Ticks)
	if t >= 1 {
		cr.pos[l.Entity] = l.To
		l.done = true
		return true, false
	}
	f := mathx.SmoothStep(t)
	cr.pos[l.Entity] = Vec3{
		X: mathx.Lerp(l.From.X, l.To.X, f),
		Y: mathx.Lerp(l.From.Y, l.To.Y, f),
		Z: mathx.Lerp(l.From.Z, l.To.Z, f),
	}
	return false, false
}

// cancelAll invalidates every leg currently in flight.
func (cr *Crane) cancelAll() {
	for e := craneEntity(0); e < numEntities; e++ {
		cr.gen[e]++
	}
}

func legTicks(dist, speed float64, min int) int {
	if min < 1 {
		min = 1
	}
	if speed <= 0 || dist <= 0 {
		return min
	}
	t := int(math.Ceil(dist / speed))
	if t < min {
		t = min
	}
	return t
}
