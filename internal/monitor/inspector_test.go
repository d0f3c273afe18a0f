package monitor

import (
	"context"
	"reflect"
	"testing"

	"github.com/claude-bar/claude-bar/internal/mock"
)

func processTree() *mock.Inspector {
	return mock.NewInspector("claude",
		// launchd -> iTerm2 -> login -> zsh -> claude -> node hook
		mock.Process{PID: 1, PPID: 0, Name: "launchd"},
		mock.Process{PID: 500, PPID: 1, Name: "iTerm2"},
		mock.Process{PID: 600, PPID: 500, Name: "login", TTY: "/dev/ttys003"},
		mock.Process{PID: 700, PPID: 600, Name: "-zsh", TTY: "/dev/ttys003"},
		mock.Process{PID: 800, PPID: 700, Name: "/opt/homebrew/bin/claude", TTY: "/dev/ttys003", Cwd: "/Users/dev/proj"},
		mock.Process{PID: 900, PPID: 800, Name: "node", TTY: "/dev/ttys003"},
		mock.Process{PID: 901, PPID: 900, Name: "sh", TTY: "/dev/ttys003"},
		// A detached claude (no tty) with a child.
		mock.Process{PID: 1000, PPID: 1, Name: "claude"},
		mock.Process{PID: 1001, PPID: 1000, Name: "sh"},
		// An orphan whose parent is missing from the table.
		mock.Process{PID: 2000, PPID: 1999, Name: "sh"},
	)
}

func TestFindAncestor(t *testing.T) {
	ctx := context.Background()
	insp := processTree()

	tests := []struct {
		name    string
		start   int
		wantPID int
		wantTTY string
		wantOK  bool
	}{
		{"grandchild of claude", 901, 800, "/dev/ttys003", true},
		{"direct child", 900, 800, "/dev/ttys003", true},
		{"start is claude", 800, 800, "/dev/ttys003", true},
		{"no claude above", 700, 0, "", false},
		{"claude without tty", 1001, 0, "", false},
		{"root", 1, 0, "", false},
		{"zero pid", 0, 0, "", false},
		{"lookup fails", 2000, 0, "", false},
		{"unknown start", 4242, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid, tty, ok := FindAncestor(ctx, insp, "claude", tt.start)
			if pid != tt.wantPID || tty != tt.wantTTY || ok != tt.wantOK {
				t.Errorf("FindAncestor(%d) = (%d, %q, %v), want (%d, %q, %v)",
					tt.start, pid, tty, ok, tt.wantPID, tt.wantTTY, tt.wantOK)
			}
		})
	}
}

func TestFindAncestorCycle(t *testing.T) {
	insp := mock.NewInspector("claude",
		mock.Process{PID: 10, PPID: 11, Name: "sh"},
		mock.Process{PID: 11, PPID: 10, Name: "sh"},
		mock.Process{PID: 12, PPID: 12, Name: "sh"},
	)
	if _, _, ok := FindAncestor(context.Background(), insp, "claude", 10); ok {
		t.Error("FindAncestor found a match in a parent cycle")
	}
	if _, _, ok := FindAncestor(context.Background(), insp, "claude", 12); ok {
		t.Error("FindAncestor found a match in a self-parented process")
	}
}

func TestPIDsByTTY(t *testing.T) {
	insp := mock.NewInspector("claude",
		mock.Process{PID: 300, Name: "claude", TTY: "/dev/ttys002"},
		mock.Process{PID: 120, Name: "claude", TTY: "/dev/ttys002"},
		mock.Process{PID: 200, Name: "claude", TTY: "/dev/ttys001"},
		mock.Process{PID: 400, Name: "claude"},
		mock.Process{PID: 500, Name: "zsh", TTY: "/dev/ttys009"},
	)

	got := PIDsByTTY(context.Background(), insp)
	want := map[string]int{
		"/dev/ttys001": 200,
		"/dev/ttys002": 120,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PIDsByTTY = %v, want %v", got, want)
	}
}
