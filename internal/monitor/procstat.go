package monitor

import (
	"strconv"
	"strings"
)

// parseProcStatPPID extracts the ppid from /proc/<pid>/stat content.
// Format: "pid (comm) state ppid ..." where comm may contain spaces or
// parens, so we find the last closing paren first. PPID is at index 1
// in the remaining fields (state=0, ppid=1).
func parseProcStatPPID(stat string) int {
	idx := strings.LastIndex(stat, ")")
	if idx < 0 || idx+2 >= len(stat) {
		return 0
	}
	fields := strings.Fields(stat[idx+1:])
	if len(fields) < 2 {
		return 0
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return ppid
}
