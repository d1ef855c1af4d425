package agent

import (
	"github.com/tbxark/voiceform/types"
)

// Response is the outcome of one turn: the tagged action, the text the
// agent speaks, the exported form document, and the recomputed progress.
type Response struct {
	Action    types.Action      `json:"-"`
	Reply     string            `json:"agent_reply"`
	FormState map[string]string `json:"form_state"`
	Progress  types.Progress    `json:"progress"`
	Complete  bool              `json:"is_complete"`
}

// StartResult is the outcome of starting a conversation for a session.
type StartResult struct {
	SessionID    string `json:"session_id"`
	NextQuestion string `json:"next_question,omitempty"`
	Complete     bool   `json:"is_complete"`
}
