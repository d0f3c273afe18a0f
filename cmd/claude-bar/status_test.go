package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude-bar/claude-bar/internal/session"
)

func TestRenderStatus(t *testing.T) {
	sessions := []session.Session{
		{TTY: "/dev/ttys001", PID: 101, Cwd: "/work/api", Terminal: session.TerminalITerm2, Status: session.Active},
		{TTY: "/dev/ttys002", PID: 102, Cwd: "/work/web", Terminal: session.TerminalITerm2, Status: session.Idle},
		{TTY: "/dev/pts/3", PID: 103, Terminal: session.TerminalUnknown, Status: session.Pending},
	}

	var buf bytes.Buffer
	require.NoError(t, renderStatus(&buf, sessions))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "STATUS"))
	assert.Contains(t, lines[1], "Needs input")
	assert.Contains(t, lines[1], "pts/3")
	assert.Contains(t, lines[1], "unknown")
	assert.Contains(t, lines[2], "Running")
	assert.Contains(t, lines[2], "api")
	assert.Contains(t, lines[3], "Idle")
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "3 sessions: 1 needs input, 1 running, 1 idle", lines[5])

	// Input order is left alone.
	assert.Equal(t, session.Active, sessions[0].Status)
}

func TestRenderStatusEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderStatus(&buf, nil))
	assert.Equal(t, "no sessions\n", buf.String())
}
