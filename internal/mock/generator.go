package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude-bar/claude-bar/internal/logging"
	"github.com/claude-bar/claude-bar/internal/session"
	"github.com/claude-bar/claude-bar/internal/transcript"
)

var log = logging.ForComponent(logging.CompMock)

// Program is the process name the demo fleet runs under.
const Program = "claude"

type pattern string

const (
	// patternSteady writes every step and always reads as active.
	patternSteady pattern = "steady"
	// patternApproval repeatedly stalls on a tool call awaiting approval.
	patternApproval pattern = "approval"
	// patternPlan sits in plan review between EnterPlanMode and
	// ExitPlanMode.
	patternPlan pattern = "plan"
	// patternIdle finished long ago and never writes again.
	patternIdle pattern = "idle"
)

type mockSession struct {
	tty       string
	pid       int
	cwd       string
	kind      session.Terminal
	pattern   pattern
	sessionID string
	path      string
	claimed   bool
	step      int
	toolSeq   int
}

// Generator runs a fake fleet of sessions: it owns an in-memory process
// table and terminal lists, and appends synthetic transcript entries under
// real projects and claims directories so the whole pipeline runs against
// it unchanged.
type Generator struct {
	projectsDir string
	claimsDir   string
	interval    time.Duration

	inspector *Inspector
	iterm2    *Enumerator
	alacritty *Enumerator

	mu        sync.Mutex
	sessions  []*mockSession
	toolCycle []string
	setupDone bool
}

func NewGenerator(projectsDir, claimsDir string, interval time.Duration) *Generator {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Generator{
		projectsDir: projectsDir,
		claimsDir:   claimsDir,
		interval:    interval,
		inspector:   NewInspector(Program),
		iterm2:      NewEnumerator(session.TerminalITerm2),
		alacritty:   NewEnumerator(session.TerminalAlacritty),
		toolCycle:   []string{"Read", "Grep", "Edit", "Bash", "Glob", "Write"},
	}
}

func (g *Generator) Inspector() *Inspector { return g.inspector }

// Enumerators returns the fake terminals in default priority order.
func (g *Generator) Enumerators() []*Enumerator {
	return []*Enumerator{g.iterm2, g.alacritty}
}

// Setup creates the fleet: processes, terminal tty lists, transcripts and
// claims. One session sits on a tty no terminal reports, and one has no
// claim so it resolves through the fallback path.
func (g *Generator) Setup() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.setupDone {
		return nil
	}

	g.sessions = []*mockSession{
		{tty: "/dev/ttys101", pid: 41001, cwd: "/home/user/api-server", kind: session.TerminalITerm2, pattern: patternSteady, claimed: true},
		{tty: "/dev/ttys104", pid: 41004, cwd: "/home/user/webapp", kind: session.TerminalITerm2, pattern: patternApproval, claimed: true},
		{tty: "/dev/ttys102", pid: 41002, cwd: "/home/user/webapp", kind: session.TerminalITerm2, pattern: patternSteady, claimed: false},
		{tty: "/dev/ttys107", pid: 41007, cwd: "/home/user/library", kind: session.TerminalAlacritty, pattern: patternPlan, claimed: true},
		{tty: "/dev/ttys105", pid: 41005, cwd: "/home/user/analytics", kind: session.TerminalAlacritty, pattern: patternIdle, claimed: true},
		{tty: "/dev/ttys120", pid: 41020, cwd: "/home/user/frontend", kind: session.TerminalUnknown, pattern: patternApproval, claimed: true},
	}

	var iterm2, alacritty []string
	for _, ms := range g.sessions {
		ms.sessionID = uuid.NewString()
		logDir := transcript.LogDirFor(g.projectsDir, ms.cwd)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return fmt.Errorf("creating log dir: %w", err)
		}
		ms.path = filepath.Join(logDir, ms.sessionID+".jsonl")

		if err := g.appendLocked(ms, userText(ms, "Let's get started.")); err != nil {
			return err
		}
		if ms.pattern == patternIdle {
			if err := g.appendLocked(ms, assistantText(ms, "All done.")); err != nil {
				return err
			}
			old := time.Now().Add(-10 * time.Minute)
			if err := os.Chtimes(ms.path, old, old); err != nil {
				return fmt.Errorf("backdating %s: %w", ms.path, err)
			}
		}

		if ms.claimed {
			dir := transcript.ClaimsDirFor(g.claimsDir, ms.cwd)
			claim := transcript.Claim{SessionID: ms.sessionID, TranscriptPath: ms.path}
			if _, err := transcript.WriteClaim(dir, ms.tty, claim); err != nil {
				return err
			}
		}

		// A login shell parents every session.
		g.inspector.Set(Process{PID: ms.pid - 1000, PPID: 1, Name: "zsh", TTY: ms.tty, Cwd: ms.cwd})
		g.inspector.Set(Process{PID: ms.pid, PPID: ms.pid - 1000, Name: Program, TTY: ms.tty, Cwd: ms.cwd})

		switch ms.kind {
		case session.TerminalITerm2:
			iterm2 = append(iterm2, ms.tty)
		case session.TerminalAlacritty:
			alacritty = append(alacritty, ms.tty)
		}
	}

	g.iterm2.SetTTYs(iterm2...)
	// lsof reports fds in no useful order.
	for i, j := 0, len(alacritty)-1; i < j; i, j = i+1, j-1 {
		alacritty[i], alacritty[j] = alacritty[j], alacritty[i]
	}
	g.alacritty.SetTTYs(alacritty...)
	g.setupDone = true

	log.Info("mock_fleet_ready",
		slog.Int("sessions", len(g.sessions)),
		slog.String("projects_dir", g.projectsDir))
	return nil
}

// Run advances the fleet every interval until ctx is done.
func (g *Generator) Run(ctx context.Context) error {
	if err := g.Setup(); err != nil {
		return err
	}
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := g.Step(); err != nil {
				log.Warn("mock_step_failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Step advances every session by one step of its pattern.
func (g *Generator) Step() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, ms := range g.sessions {
		if err := g.advanceLocked(ms); err != nil {
			return err
		}
		ms.step++
	}
	return nil
}

func (g *Generator) advanceLocked(ms *mockSession) error {
	switch ms.pattern {
	case patternSteady:
		id := g.nextToolID(ms)
		if ms.step%2 == 0 {
			return g.appendLocked(ms, assistantToolUse(ms, id, g.toolCycle[ms.step%len(g.toolCycle)]))
		}
		return g.appendLocked(ms, userToolResult(ms, g.lastToolID(ms), false))

	case patternApproval:
		// Ten-step cycle: ask, wait on a tool for five steps, answer, rest.
		switch ms.step % 10 {
		case 0:
			return g.appendLocked(ms, userText(ms, "Run the migration."))
		case 1:
			return g.appendLocked(ms, assistantToolUse(ms, g.nextToolID(ms), "Bash"))
		case 6:
			return g.appendLocked(ms, userToolResult(ms, g.lastToolID(ms), false))
		case 7:
			return g.appendLocked(ms, assistantText(ms, "Migration applied."))
		}

	case patternPlan:
		// Twenty-step cycle through plan mode.
		switch ms.step % 20 {
		case 0:
			return g.appendLocked(ms, assistantToolUse(ms, g.nextToolID(ms), transcript.EnterPlanModeTool))
		case 1:
			return g.appendLocked(ms, userToolResult(ms, g.lastToolID(ms), false))
		case 2:
			return g.appendLocked(ms, assistantText(ms, "Here is the plan."))
		case 12:
			return g.appendLocked(ms, assistantToolUse(ms, g.nextToolID(ms), transcript.ExitPlanModeTool))
		case 16:
			return g.appendLocked(ms, userToolResult(ms, g.lastToolID(ms), false))
		case 17:
			return g.appendLocked(ms, assistantText(ms, "Implementing."))
		}
	}
	return nil
}

func (g *Generator) nextToolID(ms *mockSession) string {
	ms.toolSeq++
	return g.lastToolID(ms)
}

func (g *Generator) lastToolID(ms *mockSession) string {
	return fmt.Sprintf("toolu_%s_%d", ms.sessionID[:8], ms.toolSeq)
}

func (g *Generator) appendLocked(ms *mockSession, entry any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	f, err := os.OpenFile(ms.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending transcript: %w", err)
	}
	return nil
}

type transcriptEntry struct {
	Type      string  `json:"type"`
	UUID      string  `json:"uuid"`
	SessionID string  `json:"sessionId"`
	Timestamp string  `json:"timestamp"`
	Cwd       string  `json:"cwd"`
	Message   message `json:"message"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type block struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`
}

func newEntry(ms *mockSession, role string, content any) transcriptEntry {
	return transcriptEntry{
		Type:      role,
		UUID:      uuid.NewString(),
		SessionID: ms.sessionID,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Cwd:       ms.cwd,
		Message:   message{Role: role, Content: content},
	}
}

func userText(ms *mockSession, text string) transcriptEntry {
	return newEntry(ms, transcript.RoleUser, text)
}

func assistantText(ms *mockSession, text string) transcriptEntry {
	return newEntry(ms, transcript.RoleAssistant, []block{{Type: "text", Text: text}})
}

func assistantToolUse(ms *mockSession, id, name string) transcriptEntry {
	return newEntry(ms, transcript.RoleAssistant, []block{{Type: "tool_use", ID: id, Name: name, Input: map[string]any{}}})
}

func userToolResult(ms *mockSession, id string, isError bool) transcriptEntry {
	return newEntry(ms, transcript.RoleUser, []block{{Type: "tool_result", ToolUseID: id, Content: "ok", IsError: isError}})
}
