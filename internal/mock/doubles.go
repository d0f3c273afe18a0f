// Package mock provides in-memory stand-ins for the process and terminal
// queries, and a demo fleet that drives them.
package mock

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/claude-bar/claude-bar/internal/session"
)

// Process is one row of the fake process table.
type Process struct {
	PID  int
	PPID int
	Name string
	TTY  string
	Cwd  string
}

// Inspector answers process queries from an in-memory table. It is safe
// for concurrent use.
type Inspector struct {
	mu      sync.RWMutex
	program string
	procs   map[int]Process
}

func NewInspector(program string, procs ...Process) *Inspector {
	in := &Inspector{program: program, procs: make(map[int]Process, len(procs))}
	for _, p := range procs {
		in.procs[p.PID] = p
	}
	return in
}

// Set adds or replaces a process.
func (in *Inspector) Set(p Process) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.procs[p.PID] = p
}

func (in *Inspector) Remove(pid int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.procs, pid)
}

func (in *Inspector) get(pid int) (Process, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	p, ok := in.procs[pid]
	return p, ok
}

func (in *Inspector) MonitoredPIDs(context.Context) []int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	var pids []int
	for pid, p := range in.procs {
		if filepath.Base(p.Name) == in.program {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids
}

func (in *Inspector) TTY(_ context.Context, pid int) (string, bool) {
	p, ok := in.get(pid)
	if !ok || p.TTY == "" {
		return "", false
	}
	return p.TTY, true
}

func (in *Inspector) Cwd(_ context.Context, pid int) (string, bool) {
	p, ok := in.get(pid)
	if !ok || p.Cwd == "" {
		return "", false
	}
	return p.Cwd, true
}

func (in *Inspector) Parent(_ context.Context, pid int) (int, bool) {
	p, ok := in.get(pid)
	if !ok {
		return 0, false
	}
	return p.PPID, true
}

func (in *Inspector) Name(_ context.Context, pid int) (string, bool) {
	p, ok := in.get(pid)
	if !ok || p.Name == "" {
		return "", false
	}
	return p.Name, true
}

// Enumerator reports a fixed, settable tty list for one terminal kind.
type Enumerator struct {
	mu   sync.RWMutex
	kind session.Terminal
	ttys []string
	err  error
}

func NewEnumerator(kind session.Terminal, ttys ...string) *Enumerator {
	return &Enumerator{kind: kind, ttys: ttys}
}

func (e *Enumerator) Kind() session.Terminal { return e.kind }

func (e *Enumerator) SetTTYs(ttys ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ttys = ttys
}

// SetErr makes every following TTYs call fail with err; nil clears it.
func (e *Enumerator) SetErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *Enumerator) TTYs(context.Context) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([]string, len(e.ttys))
	copy(out, e.ttys)
	return out, nil
}
