// Package hook implements the session-start hook. The assistant runs it with
// the session's id and transcript path on stdin; the hook finds the session's
// tty by walking up its own process ancestry and records the pairing as a
// claim the resolver can trust.
package hook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude-bar/claude-bar/internal/config"
	"github.com/claude-bar/claude-bar/internal/logging"
	"github.com/claude-bar/claude-bar/internal/monitor"
	"github.com/claude-bar/claude-bar/internal/transcript"
)

var log = logging.ForComponent(logging.CompHook)

// maxInput bounds how much of stdin is read.
const maxInput = 1 << 20

// ErrNoSession is returned when no ancestor of the hook runs the monitored
// program on a tty.
var ErrNoSession = errors.New("no monitored ancestor with a tty")

// Input is the hook payload. Unknown fields are ignored.
type Input struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
}

// Result describes the claim a successful run wrote.
type Result struct {
	PID       int
	TTY       string
	Cwd       string
	ClaimPath string
}

// ParseInput decodes the hook payload. session_id and transcript_path are
// required.
func ParseInput(r io.Reader) (Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInput))
	if err != nil {
		return Input{}, fmt.Errorf("reading hook input: %w", err)
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return Input{}, fmt.Errorf("parsing hook input: %w", err)
	}
	if in.SessionID == "" {
		return Input{}, errors.New("hook input: missing session_id")
	}
	if in.TranscriptPath == "" {
		return Input{}, errors.New("hook input: missing transcript_path")
	}
	return in, nil
}

// Run reads the payload from stdin, locates the monitored ancestor of
// parentPID and writes its claim under the project's claims directory.
func Run(ctx context.Context, stdin io.Reader, insp monitor.ProcessInspector, cfg *config.Config, parentPID int) (Result, error) {
	in, err := ParseInput(stdin)
	if err != nil {
		return Result{}, err
	}

	pid, tty, ok := monitor.FindAncestor(ctx, insp, cfg.Monitor.Program, parentPID)
	if !ok {
		log.Warn("hook_no_session",
			slog.Int("ppid", parentPID),
			slog.String("session_id", in.SessionID))
		return Result{}, ErrNoSession
	}

	cwd, ok := insp.Cwd(ctx, pid)
	if !ok {
		cwd = in.Cwd
	}

	claim := transcript.Claim{SessionID: in.SessionID, TranscriptPath: in.TranscriptPath}
	path, err := transcript.WriteClaim(transcript.ClaimsDirFor(cfg.Paths.ClaimsDir, cwd), tty, claim)
	if err != nil {
		return Result{}, fmt.Errorf("writing claim: %w", err)
	}

	log.Info("claim_written",
		slog.String("tty", tty),
		slog.Int("pid", pid),
		slog.String("session_id", in.SessionID),
		slog.String("path", path))
	return Result{PID: pid, TTY: tty, Cwd: cwd, ClaimPath: path}, nil
}
