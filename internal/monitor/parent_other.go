//go:build !linux

package monitor

// procParentPID has no fast path without procfs; callers fall back to ps.
func procParentPID(int) (int, bool) {
	return 0, false
}
