package session

import (
	"encoding/json"
	"fmt"
)

// Status is the derived tri-state of a session.
type Status int

const (
	Active Status = iota
	Pending
	Idle
)

var statusNames = map[Status]string{
	Active:  "active",
	Pending: "pending",
	Idle:    "idle",
}

var statusFromName = map[string]Status{
	"active":  Active,
	"pending": Pending,
	"idle":    Idle,
}

var statusLabels = map[Status]string{
	Active:  "Running",
	Pending: "Needs input",
	Idle:    "Idle",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Label is the human-facing name of the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "Unknown"
}

// Index is the stable ordinal of the status (active=0, pending=1, idle=2).
func (s Status) Index() int { return int(s) }

// StatusFromIndex is the inverse of Index.
func StatusFromIndex(i int) (Status, bool) {
	s := Status(i)
	_, ok := statusNames[s]
	return s, ok
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := statusFromName[name]
	if !ok {
		return fmt.Errorf("unknown status %q", name)
	}
	*s = v
	return nil
}

// Terminal identifies the terminal application that owns a tty.
type Terminal int

const (
	TerminalUnknown Terminal = iota
	TerminalITerm2
	TerminalAlacritty
)

var terminalNames = map[Terminal]string{
	TerminalUnknown:   "unknown",
	TerminalITerm2:    "iterm2",
	TerminalAlacritty: "alacritty",
}

func (t Terminal) String() string {
	if name, ok := terminalNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseTerminal maps a terminal name to its kind. Unrecognized names map
// to TerminalUnknown with ok=false.
func ParseTerminal(name string) (Terminal, bool) {
	for kind, n := range terminalNames {
		if n == name {
			return kind, true
		}
	}
	return TerminalUnknown, false
}

func (t Terminal) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Terminal) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*t, _ = ParseTerminal(name)
	return nil
}

// Session is one live instance of the monitored program attached to a tty.
// Sessions are built fresh every poll cycle and not mutated afterwards.
type Session struct {
	TTY        string   `json:"tty"`
	PID        int      `json:"pid"`
	Cwd        string   `json:"cwd"`
	Terminal   Terminal `json:"terminal"`
	Transcript string   `json:"transcript,omitempty"`
	Status     Status   `json:"status"`
}
