package yardtest

import (
	"reflect"
	"testing"

	"stackyard.dev/internal/protocol"
)

// The canonical stack/unstack session: ground a container, stack a
// second on it, bounce an oversized placement off the back row, then
// unstack in the only legal order.
func TestStackAndUnstackWalkthrough(t *testing.T) {
	h := NewHarness(t, FastConfig(), "operator")

	c1 := h.Admit(protocol.SizeOneUnit)
	c2 := h.Admit(protocol.SizeOneUnit)

	// First container grounds at A1.
	state := h.Place(c1, "A1")
	if got := cellOccupant(state, 1, 1, 1); got != c1 {
		t.Fatalf("A1 tier 1 = %q, want %q", got, c1)
	}
	obs, ok := containerByID(state, c1)
	if !ok || obs.Staged || obs.Slot != "A1" || obs.Tier != 1 {
		t.Fatalf("c1 obs = %+v", obs)
	}

	// Second container at the same slot stacks to tier 2.
	state = h.Place(c2, "A1")
	if got := cellOccupant(state, 1, 1, 2); got != c2 {
		t.Fatalf("A1 tier 2 = %q, want %q", got, c2)
	}
	obs, _ = containerByID(state, c2)
	if obs.Tier != 2 {
		t.Fatalf("c2 tier = %d, want 2", obs.Tier)
	}

	// A TwoUnit cannot start at the last row.
	c3 := h.Admit(protocol.SizeTwoUnit)
	req := h.PlaceReq(c3, "A3")
	state = h.Step(req)
	if code := actionResultCode(state, req.ID); code != protocol.ErrEdgeOverflow {
		t.Fatalf("code = %q, want %s", code, protocol.ErrEdgeOverflow)
	}

	// The buried container is pinned while c2 rests on it.
	req = h.RemoveReq(c1)
	state = h.Step(req)
	if code := actionResultCode(state, req.ID); code != protocol.ErrBlockedAbove {
		t.Fatalf("code = %q, want %s", code, protocol.ErrBlockedAbove)
	}
	ev, ok := eventOfType(state, "ACTION_RESULT")
	if !ok {
		t.Fatalf("no result event")
	}
	if got := stringsOf(ev["blockers"]); !reflect.DeepEqual(got, []string{c2}) {
		t.Fatalf("blockers = %v, want [%s]", got, c2)
	}

	// Nothing moved while denied.
	if got := cellOccupant(state, 1, 1, 1); got != c1 {
		t.Fatalf("denied removal moved the ledger: A1 t1 = %q", got)
	}

	// Unstack top first, then the base lifts freely.
	h.Remove(c2)
	state = h.Remove(c1)
	if len(state.Ledger.Cells) != 0 {
		t.Fatalf("ledger not empty after unstacking: %+v", state.Ledger.Cells)
	}

	// Both are back in the gate lane, at spots never handed out before.
	o1, _ := containerByID(state, c1)
	o2, _ := containerByID(state, c2)
	if !o1.Staged || !o2.Staged {
		t.Fatalf("staged = %v/%v, want true/true", o1.Staged, o2.Staged)
	}
	if o2.GateIndex != 3 || o1.GateIndex != 4 {
		t.Fatalf("gate spots = %d/%d, want 3/4 (admissions took 0-2)", o2.GateIndex, o1.GateIndex)
	}
}

func TestGroundPreferredOverStacking(t *testing.T) {
	h := NewHarness(t, FastConfig(), "operator")

	c1 := h.Admit(protocol.SizeOneUnit)
	c2 := h.Admit(protocol.SizeOneUnit)

	h.Place(c1, "B2")
	// B2 ground is taken, but C1 ground is free; asking for C1 must
	// not stack anywhere.
	state := h.Place(c2, "C1")
	if got := cellOccupant(state, 3, 1, 1); got != c2 {
		t.Fatalf("C1 tier 1 = %q, want %q", got, c2)
	}
	if got := cellOccupant(state, 2, 2, 2); got != "" {
		t.Fatalf("nothing should stack on B2, found %q", got)
	}
}

func TestTwoUnitSpansTwoRows(t *testing.T) {
	h := NewHarness(t, FastConfig(), "operator")

	c1 := h.Admit(protocol.SizeTwoUnit)
	state := h.Place(c1, "B1")
	if cellOccupant(state, 2, 1, 1) != c1 || cellOccupant(state, 2, 2, 1) != c1 {
		t.Fatalf("TwoUnit footprint incomplete: %+v", state.Ledger.Cells)
	}
	obs, _ := containerByID(state, c1)
	if obs.Slot != "B1" {
		t.Fatalf("anchor slot = %q, want B1", obs.Slot)
	}
}

func TestBadRequestsAreDeniedInPlace(t *testing.T) {
	h := NewHarness(t, FastConfig(), "operator")
	c1 := h.Admit(protocol.SizeOneUnit)

	cases := []struct {
		name string
		req  protocol.OpReq
		code string
	}{
		{"bad slot text", h.PlaceReq(c1, "Z9"), protocol.ErrBadSlot},
		{"bad slot length", h.PlaceReq(c1, "A12"), protocol.ErrBadSlot},
		{"no container named", h.PlaceReq("", "A1"), protocol.ErrNoActiveContainer},
		{"unknown container", h.PlaceReq("C99", "A1"), protocol.ErrContainerNotFound},
		{"remove unknown", h.RemoveReq("C99"), protocol.ErrContainerNotFound},
		{"remove staged", h.RemoveReq(c1), protocol.ErrBadRequest},
		{"admit bad size", h.AdmitReq("THREE_UNIT"), protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		state := h.Step(tc.req)
		if code := actionResultCode(state, tc.req.ID); code != tc.code {
			t.Fatalf("%s: code = %q, want %s", tc.name, code, tc.code)
		}
		if len(state.Ledger.Cells) != 0 {
			t.Fatalf("%s: denial touched the ledger", tc.name)
		}
		if _, _, busy := h.Y.DebugOpInFlight(); busy {
			t.Fatalf("%s: denial started an operation", tc.name)
		}
	}
}

func TestSlotParsingCaseInsensitive(t *testing.T) {
	h := NewHarness(t, FastConfig(), "operator")
	c1 := h.Admit(protocol.SizeOneUnit)
	state := h.Place(c1, "b2")
	obs, _ := containerByID(state, c1)
	if obs.Slot != "B2" {
		t.Fatalf("slot = %q, want B2", obs.Slot)
	}
}
