package monitor

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ExecFunc runs an external command and returns its stdout.
type ExecFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultExec(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 -- callers pass fixed tool names and numeric pids.
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return out, fmt.Errorf("%s %v failed: %w", name, args, err)
	}
	return out, nil
}

// PSInspector answers process queries by shelling out to pgrep, ps and
// lsof. All output goes through the parse* functions below.
type PSInspector struct {
	program string
	timeout time.Duration
	exec    ExecFunc
	// parent is an optional fast path consulted before ps.
	parent func(pid int) (int, bool)
}

func NewPSInspector(program string, timeout time.Duration) *PSInspector {
	return &PSInspector{
		program: program,
		timeout: timeout,
		exec:    defaultExec,
		parent:  procParentPID,
	}
}

// NewPSInspectorWithExec is NewPSInspector with an injected command runner
// and no platform fast paths.
func NewPSInspectorWithExec(program string, timeout time.Duration, execFn ExecFunc) *PSInspector {
	return &PSInspector{program: program, timeout: timeout, exec: execFn}
}

func (p *PSInspector) run(ctx context.Context, name string, args ...string) (string, bool) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()
	out, err := p.exec(ctx, name, args...)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (p *PSInspector) MonitoredPIDs(ctx context.Context) []int {
	// pgrep exits 1 when nothing matches; that is an empty result.
	out, _ := p.run(ctx, "pgrep", "-x", p.program)
	return parsePgrepOutput(out)
}

func (p *PSInspector) TTY(ctx context.Context, pid int) (string, bool) {
	out, ok := p.run(ctx, "ps", "-o", "tty=", "-p", strconv.Itoa(pid))
	if !ok {
		return "", false
	}
	return parsePSTTY(out)
}

func (p *PSInspector) Cwd(ctx context.Context, pid int) (string, bool) {
	out, ok := p.run(ctx, "lsof", "-a", "-p", strconv.Itoa(pid), "-d", "cwd", "-Fn")
	if !ok {
		return "", false
	}
	return parseLsofCwd(out)
}

func (p *PSInspector) Parent(ctx context.Context, pid int) (int, bool) {
	if p.parent != nil {
		if ppid, ok := p.parent(pid); ok {
			return ppid, true
		}
	}
	out, ok := p.run(ctx, "ps", "-o", "ppid=", "-p", strconv.Itoa(pid))
	if !ok {
		return 0, false
	}
	return parsePSPPID(out)
}

func (p *PSInspector) Name(ctx context.Context, pid int) (string, bool) {
	out, ok := p.run(ctx, "ps", "-o", "comm=", "-p", strconv.Itoa(pid))
	if !ok {
		return "", false
	}
	return parsePSComm(out)
}

// parsePgrepOutput reads one pid per line, skipping anything else.
func parsePgrepOutput(output string) []int {
	var pids []int
	for _, line := range strings.Split(output, "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || pid <= 0 {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// parsePSTTY turns `ps -o tty=` output into a device path. Detached
// processes report "?" or "??".
func parsePSTTY(output string) (string, bool) {
	tty := strings.TrimSpace(output)
	switch tty {
	case "", "?", "??", "-":
		return "", false
	}
	if strings.HasPrefix(tty, "/dev/") {
		return tty, true
	}
	return "/dev/" + tty, true
}

// parseLsofCwd extracts the path from `lsof -Fn` output: the first "n"
// line following an "fcwd" line.
func parseLsofCwd(output string) (string, bool) {
	inCwd := false
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "fcwd":
			inCwd = true
		case strings.HasPrefix(line, "f"):
			inCwd = false
		case inCwd && strings.HasPrefix(line, "n") && len(line) > 1:
			return line[1:], true
		}
	}
	return "", false
}

func parsePSComm(output string) (string, bool) {
	name := strings.TrimSpace(output)
	if name == "" {
		return "", false
	}
	return name, true
}

func parsePSPPID(output string) (int, bool) {
	ppid, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil || ppid < 0 {
		return 0, false
	}
	return ppid, true
}
