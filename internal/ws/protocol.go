package ws

import (
	"github.com/claude-bar/claude-bar/internal/monitor"
	"github.com/claude-bar/claude-bar/internal/session"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgHealth   MessageType = "health"
)

// WSMessage is the envelope of every frame sent to mirror clients. Seq
// increases by one per broadcast so clients can spot dropped frames.
type WSMessage struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	Sessions []session.Session `json:"sessions"`
	// Counts tallies sessions per status name.
	Counts map[string]int `json:"counts"`
}

type HealthPayload struct {
	Sources []monitor.SourceHealth `json:"sources"`
}

func newSnapshotPayload(sessions []session.Session) SnapshotPayload {
	if sessions == nil {
		sessions = []session.Session{}
	}
	counts := map[string]int{
		session.Active.String():  0,
		session.Pending.String(): 0,
		session.Idle.String():    0,
	}
	for _, s := range sessions {
		counts[s.Status.String()]++
	}
	return SnapshotPayload{Sessions: sessions, Counts: counts}
}
