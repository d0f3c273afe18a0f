package monitor

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestNormalizeTerminal(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"/pts/0", "/dev/pts/0", true},
		{"pts/4", "/dev/pts/4", true},
		{"ttys003", "/dev/ttys003", true},
		{"/dev/ttys003", "/dev/ttys003", true},
		{"", "", false},
		{"?", "", false},
		{"??", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeTerminal(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("normalizeTerminal(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPsutilInspectorCurrentProcess(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("procfs-backed queries only checked on linux")
	}
	ctx := context.Background()
	pid := os.Getpid()

	name, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	insp := NewPsutilInspector(filepath.Base(name))

	if ppid, ok := insp.Parent(ctx, pid); !ok || ppid != os.Getppid() {
		t.Errorf("Parent(self) = %d, %v, want %d", ppid, ok, os.Getppid())
	}
	wd, _ := os.Getwd()
	if resolved, err := filepath.EvalSymlinks(wd); err == nil {
		wd = resolved
	}
	if cwd, ok := insp.Cwd(ctx, pid); !ok || cwd != wd {
		t.Errorf("Cwd(self) = %q, %v, want %q", cwd, ok, wd)
	}
	if _, ok := insp.Name(ctx, pid); !ok {
		t.Error("Name(self) not ok")
	}
	if _, ok := insp.Parent(ctx, -5); ok {
		t.Error("Parent(-5) reported ok")
	}
}
