// Package oracle defines the advisory oracle boundary: the external
// language-model service that proposes the next form action. Its output is
// never trusted; the orchestrator re-validates every proposed update before
// anything is committed.
package oracle

import (
	"context"
	"fmt"

	"github.com/tbxark/voiceform/types"
)

// Request is the context bundle sent to the oracle for one turn.
type Request struct {
	Fields       []types.FieldDefinition
	States       map[string]types.FieldState
	CurrentField string
	UserText     string
	UserIntent   string
	History      []types.Message
	Completion   types.Progress
}

// Decision is the oracle's proposed action. A nil update value requests
// clearing the field. Schema-violating decisions are rejected on receipt as
// a hard oracle failure, never consumed as partial data.
type Decision struct {
	Action     string             `json:"action" jsonschema:"required,enum=ask,enum=set,enum=done,enum=clarify,enum=correct,enum=remove,enum=error,description=What the agent should do next"`
	Updates    map[string]*string `json:"updates,omitempty" jsonschema:"description=Field name to value updates the user provided; null clears a field"`
	Ask        string             `json:"ask,omitempty" jsonschema:"description=The next question or reply to speak to the user"`
	FieldFocus string             `json:"field_focus,omitempty" jsonschema:"description=The field the conversation should focus on next"`
	Tone       string             `json:"tone,omitempty" jsonschema:"description=Conversational tone such as friendly or encouraging"`
}

var allowedActions = map[string]struct{}{
	string(types.ActionAsk):     {},
	string(types.ActionSet):     {},
	string(types.ActionDone):    {},
	string(types.ActionClarify): {},
	string(types.ActionCorrect): {},
	string(types.ActionRemove):  {},
	string(types.ActionError):   {},
}

// Validate checks the decision against the response schema.
func (d *Decision) Validate() error {
	if d == nil {
		return fmt.Errorf("empty decision")
	}
	if _, found := allowedActions[d.Action]; !found {
		return fmt.Errorf("unknown action %q", d.Action)
	}
	for name := range d.Updates {
		if name == "" {
			return fmt.Errorf("update with empty field name")
		}
	}
	return nil
}

// Oracle proposes the next action for a turn. Implementations make exactly
// one external call per Decide invocation; the caller bounds it with the
// context deadline.
type Oracle interface {
	Decide(ctx context.Context, req *Request) (*Decision, error)
}
