package monitor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/claude-bar/claude-bar/internal/config"
	"github.com/claude-bar/claude-bar/internal/session"
)

// TerminalEnumerator lists the ttys of one terminal application in that
// application's own order.
type TerminalEnumerator interface {
	Kind() session.Terminal
	TTYs(ctx context.Context) ([]string, error)
}

const iterm2Script = `
tell application "iTerm2"
    set out to ""
    repeat with w in windows
        tell w
            repeat with t in tabs
                repeat with s in sessions of t
                    set out to out & (tty of s) & linefeed
                end repeat
            end repeat
        end tell
    end repeat
    return out
end tell
`

// ITerm2Enumerator lists iTerm2 session ttys in window, tab, split order.
type ITerm2Enumerator struct {
	exec    ExecFunc
	timeout time.Duration
}

func NewITerm2Enumerator(execFn ExecFunc, timeout time.Duration) *ITerm2Enumerator {
	if execFn == nil {
		execFn = defaultExec
	}
	return &ITerm2Enumerator{exec: execFn, timeout: timeout}
}

func (e *ITerm2Enumerator) Kind() session.Terminal { return session.TerminalITerm2 }

func (e *ITerm2Enumerator) TTYs(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	out, err := e.exec(ctx, "osascript", "-e", iterm2Script)
	if err != nil {
		return nil, fmt.Errorf("iterm2 enumerate: %w", err)
	}
	return parseITerm2Output(string(out)), nil
}

// AlacrittyEnumerator lists the ttys held open by alacritty processes, in
// lsof discovery order.
type AlacrittyEnumerator struct {
	exec    ExecFunc
	timeout time.Duration
}

func NewAlacrittyEnumerator(execFn ExecFunc, timeout time.Duration) *AlacrittyEnumerator {
	if execFn == nil {
		execFn = defaultExec
	}
	return &AlacrittyEnumerator{exec: execFn, timeout: timeout}
}

func (e *AlacrittyEnumerator) Kind() session.Terminal { return session.TerminalAlacritty }

func (e *AlacrittyEnumerator) TTYs(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()
	out, err := e.exec(ctx, "lsof", "-c", "alacritty")
	if err != nil && len(out) == 0 {
		// lsof exits 1 when no alacritty is running.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("alacritty enumerate: %w", err)
	}
	return parseLsofTTYs(string(out)), nil
}

// NewEnumerators builds the enumerators for the configured kinds, in
// priority order.
func NewEnumerators(kinds []string, execFn ExecFunc, timeout time.Duration) []TerminalEnumerator {
	var enums []TerminalEnumerator
	for _, kind := range kinds {
		switch kind {
		case config.TerminalITerm2:
			enums = append(enums, NewITerm2Enumerator(execFn, timeout))
		case config.TerminalAlacritty:
			enums = append(enums, NewAlacrittyEnumerator(execFn, timeout))
		}
	}
	return enums
}

// parseITerm2Output keeps the trimmed lines that are device paths.
func parseITerm2Output(output string) []string {
	var ttys []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "/dev/") {
			ttys = append(ttys, line)
		}
	}
	return ttys
}

// parseLsofTTYs extracts unique tty device fields in first-seen order.
func parseLsofTTYs(output string) []string {
	var ttys []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		for _, field := range strings.Fields(line) {
			if !strings.HasPrefix(field, "/dev/ttys") && !strings.HasPrefix(field, "/dev/pts/") {
				continue
			}
			if seen[field] {
				continue
			}
			seen[field] = true
			ttys = append(ttys, field)
		}
	}
	return ttys
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
