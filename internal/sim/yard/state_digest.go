package yard

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// stateDigest hashes the authoritative yard state so live runs and
// replays can be compared tick by tick. Map iteration is pinned by
// sorting; identical state always hashes identical.
func (y *Yard) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)

	// Ledger.
	digestWriteU64(h, &tmp, y.ledger.Rev())
	snap := y.ledger.Snapshot()
	digestWriteU64(h, &tmp, uint64(len(snap)))
	for _, e := range snap {
		digestWriteI64(h, &tmp, int64(e.Cell.Bay))
		digestWriteI64(h, &tmp, int64(e.Cell.Row))
		digestWriteI64(h, &tmp, int64(e.Cell.Tier))
		h.Write([]byte(e.ContainerID))
	}

	// Containers.
	ids := make([]string, 0, len(y.containers))
	for id := range y.containers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	digestWriteU64(h, &tmp, uint64(len(ids)))
	for _, id := range ids {
		c := y.containers[id]
		h.Write([]byte(c.ID))
		h.Write([]byte(c.Size))
		digestWriteI64(h, &tmp, int64(c.GateIndex))
		digestWriteU64(h, &tmp, uint64(len(c.Cells)))
		for _, cell := range c.Cells {
			digestWriteI64(h, &tmp, int64(cell.Bay))
			digestWriteI64(h, &tmp, int64(cell.Row))
			digestWriteI64(h, &tmp, int64(cell.Tier))
		}
	}

	// Crane.
	for e := craneEntity(0); e < numEntities; e++ {
		p := y.crane.pos[e]
		digestWriteU64(h, &tmp, math.Float64bits(p.X))
		digestWriteU64(h, &tmp, math.Float64bits(p.Y))
		digestWriteU64(h, &tmp, math.Float64bits(p.Z))
		digestWriteU64(h, &tmp, y.crane.gen[e])
	}
	h.Write([]byte(y.crane.carrying))

	// In-flight operation.
	if y.op == nil {
		digestWriteU64(h, &tmp, 0)
	} else {
		digestWriteU64(h, &tmp, 1)
		h.Write([]byte(y.op.id))
		h.Write([]byte(y.op.kind))
		h.Write([]byte(y.op.containerID))
		digestWriteI64(h, &tmp, int64(y.op.stageIdx))
		digestWriteI64(h, &tmp, int64(y.op.doneTicks))
	}

	// Id counters, so replays continue numbering identically.
	digestWriteU64(h, &tmp, y.nextSessionNum.Load())
	digestWriteU64(h, &tmp, y.nextContainerNum.Load())
	digestWriteU64(h, &tmp, y.nextOpNum.Load())
	digestWriteI64(h, &tmp, int64(y.nextGateIdx))

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
