package yardtest

import (
	"stackyard.dev/internal/protocol"
)

func eventOfType(state protocol.StateMsg, evType string) (protocol.Event, bool) {
	for _, e := range state.Events {
		if typ, _ := e["type"].(string); typ == evType {
			return e, true
		}
	}
	return protocol.Event{}, false
}

func containerByID(state protocol.StateMsg, id string) (protocol.ContainerObs, bool) {
	for _, c := range state.Containers {
		if c.ID == id {
			return c, true
		}
	}
	return protocol.ContainerObs{}, false
}

// cellOccupant returns the container id the STATE ledger reports for a
// cell, or "" when the cell is empty.
func cellOccupant(state protocol.StateMsg, bay, row, tier int) string {
	for _, c := range state.Ledger.Cells {
		if c.Bay == bay && c.Row == row && c.Tier == tier {
			return c.ContainerID
		}
	}
	return ""
}

func stringsOf(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
