package yard

import (
	"fmt"
	"sort"

	"stackyard.dev/internal/protocol"
)

// ValidateRemoval decides whether c may be lifted out of its footprint.
// Any different container resting directly on an occupied cell pins it;
// the denial lists every distinct blocker. Callers must not pass a
// staged container. No state is touched.
func ValidateRemoval(led *Ledger, c *Container) *Denial {
	seen := map[string]bool{}
	var blockers []string
	for _, cell := range c.Cells {
		for _, id := range led.OccupantsAbove(cell) {
			if id == c.ID || seen[id] {
				continue
			}
			seen[id] = true
			blockers = append(blockers, id)
		}
	}
	if len(blockers) == 0 {
		return nil
	}
	sort.Strings(blockers)
	d := deny(protocol.ErrBlockedAbove,
		fmt.Sprintf("%s is pinned by %d container(s) above", c.ID, len(blockers)))
	d.Blockers = blockers
	return d
}
