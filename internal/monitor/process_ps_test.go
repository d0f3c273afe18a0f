package monitor

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParsePgrepOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []int
	}{
		{"several", "12345\n67890\n111\n", []int{12345, 67890, 111}},
		{"whitespace", "  12345  \n  67890\n", []int{12345, 67890}},
		{"empty", "", nil},
		{"blank lines", "\n\n", nil},
		{"garbage skipped", "123\npgrep: bad\n456\n", []int{123, 456}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parsePgrepOutput(tt.output); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parsePgrepOutput(%q) = %v, want %v", tt.output, got, tt.want)
			}
		})
	}
}

func TestParsePSTTY(t *testing.T) {
	tests := []struct {
		output string
		want   string
		ok     bool
	}{
		{"ttys000\n", "/dev/ttys000", true},
		{"  ttys042  \n", "/dev/ttys042", true},
		{"pts/3\n", "/dev/pts/3", true},
		{"??\n", "", false},
		{"  ??  ", "", false},
		{"?\n", "", false},
		{"", "", false},
		{"  \n  ", "", false},
	}
	for _, tt := range tests {
		got, ok := parsePSTTY(tt.output)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parsePSTTY(%q) = (%q, %v), want (%q, %v)", tt.output, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseLsofCwd(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
		ok     bool
	}{
		{"cwd only", "p1234\nfcwd\nn/Users/dev/project\n", "/Users/dev/project", true},
		{"cwd among fds", "p1234\nftxt\nn/usr/bin/claude\nfcwd\nn/Users/dev/my project\nf0\nn/dev/ttys001\n", "/Users/dev/my project", true},
		{"name before cwd ignored", "p1\nf3\nn/tmp/x\n", "", false},
		{"cwd without name", "p1\nfcwd\nf0\nn/dev/ttys001\n", "", false},
		{"empty", "", "", false},
		{"crlf", "p1\r\nfcwd\r\nn/srv/app\r\n", "/srv/app", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLsofCwd(tt.output)
			if got != tt.want || ok != tt.ok {
				t.Errorf("parseLsofCwd = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParsePSCommAndPPID(t *testing.T) {
	if name, ok := parsePSComm("claude\n"); !ok || name != "claude" {
		t.Errorf("parsePSComm = %q, %v", name, ok)
	}
	if name, ok := parsePSComm("  /usr/local/bin/claude  "); !ok || name != "/usr/local/bin/claude" {
		t.Errorf("parsePSComm(path) = %q, %v", name, ok)
	}
	if _, ok := parsePSComm("  \n"); ok {
		t.Error("parsePSComm(blank) reported ok")
	}

	if ppid, ok := parsePSPPID("  4321\n"); !ok || ppid != 4321 {
		t.Errorf("parsePSPPID = %d, %v", ppid, ok)
	}
	if _, ok := parsePSPPID(""); ok {
		t.Error("parsePSPPID(empty) reported ok")
	}
	if _, ok := parsePSPPID("abc"); ok {
		t.Error("parsePSPPID(garbage) reported ok")
	}
}

// fakeExec answers commands from a table keyed by "name arg arg ...".
func fakeExec(table map[string]string) ExecFunc {
	return func(_ context.Context, name string, args ...string) ([]byte, error) {
		key := name + " " + strings.Join(args, " ")
		out, ok := table[key]
		if !ok {
			return nil, errors.New("exit status 1")
		}
		return []byte(out), nil
	}
}

func TestPSInspector(t *testing.T) {
	ctx := context.Background()
	insp := NewPSInspectorWithExec("claude", time.Second, fakeExec(map[string]string{
		"pgrep -x claude":           "101\n202\n",
		"ps -o tty= -p 101":         "ttys004\n",
		"ps -o tty= -p 202":         "??\n",
		"ps -o comm= -p 101":        "claude\n",
		"ps -o ppid= -p 101":        "  55\n",
		"lsof -a -p 101 -d cwd -Fn": "p101\nfcwd\nn/Users/dev/proj\n",
		"ps -o comm= -p 55":         "-zsh\n",
	}))

	if got := insp.MonitoredPIDs(ctx); !reflect.DeepEqual(got, []int{101, 202}) {
		t.Errorf("MonitoredPIDs = %v", got)
	}
	if tty, ok := insp.TTY(ctx, 101); !ok || tty != "/dev/ttys004" {
		t.Errorf("TTY(101) = %q, %v", tty, ok)
	}
	if _, ok := insp.TTY(ctx, 202); ok {
		t.Error("TTY(202) of detached process reported ok")
	}
	if cwd, ok := insp.Cwd(ctx, 101); !ok || cwd != "/Users/dev/proj" {
		t.Errorf("Cwd(101) = %q, %v", cwd, ok)
	}
	if ppid, ok := insp.Parent(ctx, 101); !ok || ppid != 55 {
		t.Errorf("Parent(101) = %d, %v", ppid, ok)
	}
	if name, ok := insp.Name(ctx, 55); !ok || name != "-zsh" {
		t.Errorf("Name(55) = %q, %v", name, ok)
	}
	if _, ok := insp.Cwd(ctx, 999); ok {
		t.Error("Cwd of unknown pid reported ok")
	}

	byTTY := PIDsByTTY(ctx, insp)
	if !reflect.DeepEqual(byTTY, map[string]int{"/dev/ttys004": 101}) {
		t.Errorf("PIDsByTTY = %v", byTTY)
	}
}

func TestPSInspectorPgrepFailure(t *testing.T) {
	insp := NewPSInspectorWithExec("claude", time.Second, func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("pgrep: not found")
	})
	if got := insp.MonitoredPIDs(context.Background()); len(got) != 0 {
		t.Errorf("MonitoredPIDs on failure = %v, want empty", got)
	}
}

func TestPSInspectorTimeout(t *testing.T) {
	insp := NewPSInspectorWithExec("claude", 20*time.Millisecond, func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	if _, ok := insp.Name(context.Background(), 1); ok {
		t.Error("Name reported ok after timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("query took %v, want bounded by the timeout", elapsed)
	}
}
