package monitor

import (
	"sort"

	"github.com/claude-bar/claude-bar/internal/session"
)

// Enumeration is the raw tty list one enumerator reported in a cycle.
type Enumeration struct {
	Kind session.Terminal
	TTYs []string
}

// Merged is a live tty and the terminal that owns it.
type Merged struct {
	TTY  string
	Kind session.Terminal
}

// MergeSessions orders the live ttys for display. The first enumeration
// keeps its own order; every later one, in priority order, contributes its
// unclaimed live ttys sorted by path. Live ttys no enumerator reported come
// last, sorted, as TerminalUnknown. A tty reported twice belongs to the
// first enumeration that listed it.
func MergeSessions(enums []Enumeration, pidByTTY map[string]int) []Merged {
	var result []Merged
	seen := make(map[string]bool, len(pidByTTY))

	for i, enum := range enums {
		var batch []string
		for _, tty := range enum.TTYs {
			if _, live := pidByTTY[tty]; !live || seen[tty] {
				continue
			}
			seen[tty] = true
			batch = append(batch, tty)
		}
		if i > 0 {
			sort.Strings(batch)
		}
		for _, tty := range batch {
			result = append(result, Merged{TTY: tty, Kind: enum.Kind})
		}
	}

	var unclaimed []string
	for tty := range pidByTTY {
		if !seen[tty] {
			unclaimed = append(unclaimed, tty)
		}
	}
	sort.Strings(unclaimed)
	for _, tty := range unclaimed {
		result = append(result, Merged{TTY: tty, Kind: session.TerminalUnknown})
	}

	return result
}
