package monitor

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// PsutilInspector answers process queries through gopsutil, without
// spawning helper commands.
type PsutilInspector struct {
	program string
}

func NewPsutilInspector(program string) *PsutilInspector {
	return &PsutilInspector{program: program}
}

func (p *PsutilInspector) MonitoredPIDs(ctx context.Context) []int {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil
	}
	var pids []int
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil || filepath.Base(name) != p.program {
			continue
		}
		pids = append(pids, int(proc.Pid))
	}
	sort.Ints(pids)
	return pids
}

func (p *PsutilInspector) proc(ctx context.Context, pid int) (*process.Process, bool) {
	if pid <= 0 {
		return nil, false
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, false
	}
	return proc, true
}

func (p *PsutilInspector) TTY(ctx context.Context, pid int) (string, bool) {
	proc, ok := p.proc(ctx, pid)
	if !ok {
		return "", false
	}
	term, err := proc.TerminalWithContext(ctx)
	if err != nil {
		return "", false
	}
	return normalizeTerminal(term)
}

func (p *PsutilInspector) Cwd(ctx context.Context, pid int) (string, bool) {
	proc, ok := p.proc(ctx, pid)
	if !ok {
		return "", false
	}
	cwd, err := proc.CwdWithContext(ctx)
	if err != nil || cwd == "" {
		return "", false
	}
	return cwd, true
}

func (p *PsutilInspector) Parent(ctx context.Context, pid int) (int, bool) {
	proc, ok := p.proc(ctx, pid)
	if !ok {
		return 0, false
	}
	ppid, err := proc.PpidWithContext(ctx)
	if err != nil {
		return 0, false
	}
	return int(ppid), true
}

func (p *PsutilInspector) Name(ctx context.Context, pid int) (string, bool) {
	proc, ok := p.proc(ctx, pid)
	if !ok {
		return "", false
	}
	name, err := proc.NameWithContext(ctx)
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}

// normalizeTerminal maps gopsutil terminal names ("/pts/0", "pts/0",
// "ttys003") to device paths.
func normalizeTerminal(term string) (string, bool) {
	term = strings.TrimSpace(term)
	switch term {
	case "", "?", "??":
		return "", false
	}
	if strings.HasPrefix(term, "/dev/") {
		return term, true
	}
	return "/dev/" + strings.TrimPrefix(term, "/"), true
}
