package monitor

import (
	"context"
	"path/filepath"
)

// maxAncestorDepth bounds the parent walk in case of a cycle in the
// reported process table.
const maxAncestorDepth = 64

// ProcessInspector answers the per-process questions the poll loop and the
// session-start hook need. Every method is best effort: failures read as
// "unknown" and never abort the caller.
type ProcessInspector interface {
	// MonitoredPIDs lists the pids running the monitored program.
	MonitoredPIDs(ctx context.Context) []int
	// TTY returns the controlling terminal of pid, or false when detached.
	TTY(ctx context.Context, pid int) (string, bool)
	Cwd(ctx context.Context, pid int) (string, bool)
	Parent(ctx context.Context, pid int) (int, bool)
	Name(ctx context.Context, pid int) (string, bool)
}

// FindAncestor walks up from startPID to the first process named program
// and returns its pid and tty. The walk stops at pid 1 or on the first
// failed lookup. A matching process without a tty yields false.
func FindAncestor(ctx context.Context, insp ProcessInspector, program string, startPID int) (int, string, bool) {
	pid := startPID
	for depth := 0; depth < maxAncestorDepth; depth++ {
		if pid <= 1 || ctx.Err() != nil {
			return 0, "", false
		}
		name, ok := insp.Name(ctx, pid)
		if !ok {
			return 0, "", false
		}
		if filepath.Base(name) == program {
			tty, ok := insp.TTY(ctx, pid)
			if !ok {
				return 0, "", false
			}
			return pid, tty, true
		}
		parent, ok := insp.Parent(ctx, pid)
		if !ok || parent == pid {
			return 0, "", false
		}
		pid = parent
	}
	return 0, "", false
}

// PIDsByTTY maps each tty to the monitored process attached to it. Detached
// processes are skipped. When two processes share a tty the lowest pid wins.
func PIDsByTTY(ctx context.Context, insp ProcessInspector) map[string]int {
	byTTY := make(map[string]int)
	for _, pid := range insp.MonitoredPIDs(ctx) {
		tty, ok := insp.TTY(ctx, pid)
		if !ok {
			continue
		}
		if cur, seen := byTTY[tty]; seen && cur < pid {
			continue
		}
		byTTY[tty] = pid
	}
	return byTTY
}
