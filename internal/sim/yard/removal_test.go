package yard

import (
	"reflect"
	"testing"

	"stackyard.dev/internal/protocol"
)

func TestValidateRemovalFree(t *testing.T) {
	led := NewLedger()
	c := place(t, led, "C1", SizeOneUnit, Cell{Bay: 1, Row: 1, Tier: 1})
	if d := ValidateRemoval(led, c); d != nil {
		t.Fatalf("unexpected denial: %+v", d)
	}
}

func TestValidateRemovalBlockedByStack(t *testing.T) {
	led := NewLedger()
	base := place(t, led, "C1", SizeOneUnit, Cell{Bay: 1, Row: 1, Tier: 1})
	place(t, led, "C2", SizeOneUnit, Cell{Bay: 1, Row: 1, Tier: 2})

	d := ValidateRemoval(led, base)
	if d == nil || d.Code != protocol.ErrBlockedAbove {
		t.Fatalf("denial = %+v, want %s", d, protocol.ErrBlockedAbove)
	}
	if !reflect.DeepEqual(d.Blockers, []string{"C2"}) {
		t.Fatalf("blockers = %v, want [C2]", d.Blockers)
	}
}

func TestValidateRemovalListsDistinctBlockersSorted(t *testing.T) {
	led := NewLedger()
	base := place(t, led, "C1", SizeTwoUnit, Cell{Bay: 2, Row: 1, Tier: 1}, Cell{Bay: 2, Row: 2, Tier: 1})
	place(t, led, "C3", SizeOneUnit, Cell{Bay: 2, Row: 1, Tier: 2})
	place(t, led, "C2", SizeOneUnit, Cell{Bay: 2, Row: 2, Tier: 2})

	d := ValidateRemoval(led, base)
	if d == nil {
		t.Fatalf("expected denial")
	}
	if !reflect.DeepEqual(d.Blockers, []string{"C2", "C3"}) {
		t.Fatalf("blockers = %v, want [C2 C3]", d.Blockers)
	}
}

func TestValidateRemovalBlockerCountedOnce(t *testing.T) {
	led := NewLedger()
	base := place(t, led, "C1", SizeTwoUnit, Cell{Bay: 3, Row: 1, Tier: 1}, Cell{Bay: 3, Row: 2, Tier: 1})
	place(t, led, "C2", SizeTwoUnit, Cell{Bay: 3, Row: 1, Tier: 2}, Cell{Bay: 3, Row: 2, Tier: 2})

	d := ValidateRemoval(led, base)
	if d == nil {
		t.Fatalf("expected denial")
	}
	if !reflect.DeepEqual(d.Blockers, []string{"C2"}) {
		t.Fatalf("blockers = %v, want [C2] exactly once", d.Blockers)
	}
}

func TestValidateRemovalTopOfStackIsFree(t *testing.T) {
	led := NewLedger()
	place(t, led, "C1", SizeOneUnit, Cell{Bay: 1, Row: 1, Tier: 1})
	top := place(t, led, "C2", SizeOneUnit, Cell{Bay: 1, Row: 1, Tier: 2})
	if d := ValidateRemoval(led, top); d != nil {
		t.Fatalf("top of stack should lift freely, got %+v", d)
	}
}
