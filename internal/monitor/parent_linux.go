//go:build linux

package monitor

import (
	"fmt"
	"os"
)

// procParentPID reads /proc/<pid>/stat to extract the parent pid.
func procParentPID(pid int) (int, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, false
	}
	ppid := parseProcStatPPID(string(data))
	return ppid, ppid > 0
}
