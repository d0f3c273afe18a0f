package transcript

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
)

// TailWindow is how much of a transcript's end is read to derive status.
const TailWindow = 64 * 1024

// Tool names that enter and leave plan mode. A pending tool call inside
// plan mode never times out to idle.
const (
	EnterPlanModeTool = "EnterPlanMode"
	ExitPlanModeTool  = "ExitPlanMode"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TailState is the last relevant state of a transcript tail.
type TailState struct {
	// LastRole is RoleUser, RoleAssistant or empty when no entry counted.
	LastRole    string
	PendingTool bool
	PlanMode    bool

	// tool_use id -> tool name, for attributing results.
	tools map[string]string
}

type entry struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentBlock struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ReadTail returns at most the last TailWindow bytes of path.
func ReadTail(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	chunk := min(size, TailWindow)
	if chunk == 0 {
		return nil, nil
	}

	buf := make([]byte, chunk)
	if _, err := f.ReadAt(buf, size-chunk); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// ParseTail folds transcript lines into a TailState. Blank, malformed and
// irrelevant lines are skipped. A window that starts mid-line yields a
// malformed first line, which is skipped the same way.
func ParseTail(content []byte) TailState {
	var st TailState
	for len(content) > 0 {
		var line []byte
		line, content, _ = bytes.Cut(content, []byte{'\n'})
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		st.apply(line)
	}
	return st
}

func (st *TailState) apply(line []byte) {
	var e entry
	if err := json.Unmarshal(line, &e); err != nil || len(e.Message) == 0 {
		return
	}
	var msg message
	if err := json.Unmarshal(e.Message, &msg); err != nil {
		return
	}
	if e.Type != msg.Role {
		return
	}

	// String content carries no blocks.
	var blocks []contentBlock
	_ = json.Unmarshal(msg.Content, &blocks)

	switch msg.Role {
	case RoleAssistant:
		st.LastRole = RoleAssistant
		st.PendingTool = false
		for _, b := range blocks {
			if b.Type != "tool_use" {
				continue
			}
			st.PendingTool = true
			if b.ID != "" {
				if st.tools == nil {
					st.tools = make(map[string]string)
				}
				st.tools[b.ID] = b.Name
			}
		}
	case RoleUser:
		st.LastRole = RoleUser
		for _, b := range blocks {
			if b.Type != "tool_result" {
				continue
			}
			st.PendingTool = false
			switch st.tools[b.ToolUseID] {
			case EnterPlanModeTool:
				st.PlanMode = true
			case ExitPlanModeTool:
				if !b.IsError {
					st.PlanMode = false
				}
			}
		}
	}
}
