package mock

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/claude-bar/claude-bar/internal/session"
)

func TestInspector(t *testing.T) {
	ctx := context.Background()
	in := NewInspector("claude",
		Process{PID: 10, PPID: 1, Name: "zsh", TTY: "/dev/ttys001"},
		Process{PID: 30, PPID: 10, Name: "/usr/local/bin/claude", TTY: "/dev/ttys001", Cwd: "/work"},
		Process{PID: 20, PPID: 1, Name: "claude"},
	)

	if got := in.MonitoredPIDs(ctx); !reflect.DeepEqual(got, []int{20, 30}) {
		t.Errorf("MonitoredPIDs = %v, want [20 30]", got)
	}
	if tty, ok := in.TTY(ctx, 30); !ok || tty != "/dev/ttys001" {
		t.Errorf("TTY(30) = %q, %v", tty, ok)
	}
	if _, ok := in.TTY(ctx, 20); ok {
		t.Error("TTY of detached process reported ok")
	}
	if cwd, ok := in.Cwd(ctx, 30); !ok || cwd != "/work" {
		t.Errorf("Cwd(30) = %q, %v", cwd, ok)
	}
	if ppid, ok := in.Parent(ctx, 30); !ok || ppid != 10 {
		t.Errorf("Parent(30) = %d, %v", ppid, ok)
	}
	if _, ok := in.Name(ctx, 99); ok {
		t.Error("Name of unknown pid reported ok")
	}

	in.Remove(30)
	if got := in.MonitoredPIDs(ctx); !reflect.DeepEqual(got, []int{20}) {
		t.Errorf("MonitoredPIDs after Remove = %v", got)
	}
}

func TestEnumerator(t *testing.T) {
	ctx := context.Background()
	e := NewEnumerator(session.TerminalAlacritty, "/dev/ttys003", "/dev/ttys001")

	if e.Kind() != session.TerminalAlacritty {
		t.Errorf("Kind = %v", e.Kind())
	}
	got, err := e.TTYs(ctx)
	if err != nil || !reflect.DeepEqual(got, []string{"/dev/ttys003", "/dev/ttys001"}) {
		t.Errorf("TTYs = %v, %v", got, err)
	}

	// The returned slice is a copy.
	got[0] = "mutated"
	again, _ := e.TTYs(ctx)
	if again[0] != "/dev/ttys003" {
		t.Error("TTYs returned the internal slice")
	}

	e.SetErr(errors.New("lsof failed"))
	if _, err := e.TTYs(ctx); err == nil {
		t.Error("expected error after SetErr")
	}
	e.SetErr(nil)
	e.SetTTYs()
	if got, err := e.TTYs(ctx); err != nil || len(got) != 0 {
		t.Errorf("TTYs after reset = %v, %v", got, err)
	}
}
