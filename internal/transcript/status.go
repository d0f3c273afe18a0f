package transcript

import (
	"os"
	"time"

	"github.com/claude-bar/claude-bar/internal/session"
)

const (
	// GracePeriod hides tool calls that are approved automatically.
	GracePeriod = 3 * time.Second
	// RecentWindow is how long any write keeps a session active.
	RecentWindow = 10 * time.Second
	// ResponseTimeout bounds both a waiting tool call and a pending reply.
	ResponseTimeout = 120 * time.Second
)

// Decide maps a tail state and transcript age to a status. Rule order
// matters: a stale pending tool call must not read as recent activity.
func Decide(st TailState, age time.Duration) session.Status {
	if st.PendingTool && age >= GracePeriod {
		if st.PlanMode || age < ResponseTimeout {
			return session.Pending
		}
		return session.Idle
	}
	if age < RecentWindow {
		return session.Active
	}
	if st.LastRole == RoleUser {
		if age < ResponseTimeout {
			return session.Active
		}
		return session.Idle
	}
	if st.PlanMode {
		return session.Pending
	}
	return session.Idle
}

// Status derives the status of transcript content of the given age. A nil
// age means there is no transcript yet, which reads as a new session.
func Status(content []byte, age *time.Duration) session.Status {
	if age == nil {
		return session.Active
	}
	return Decide(ParseTail(content), *age)
}

// StatusOfFile measures the transcript age once against now and derives its
// status. Missing or unreadable files and future mtimes count as no age.
func StatusOfFile(path string, now time.Time) session.Status {
	if path == "" {
		return session.Active
	}
	info, err := os.Stat(path)
	if err != nil {
		return session.Active
	}
	age := now.Sub(info.ModTime())
	if age < 0 {
		return session.Active
	}
	content, err := ReadTail(path)
	if err != nil {
		content = nil
	}
	return Status(content, &age)
}
