package types

// ActionKind names the variant of a turn action.
type ActionKind string

const (
	ActionAsk     ActionKind = "ask"
	ActionSet     ActionKind = "set"
	ActionDone    ActionKind = "done"
	ActionClarify ActionKind = "clarify"
	ActionCorrect ActionKind = "correct"
	ActionRemove  ActionKind = "remove"
	ActionError   ActionKind = "error"
)

// Action is the deterministic outcome of one conversation turn. Each variant
// carries only the fields that are meaningful for that kind; callers switch
// on the concrete type rather than probing optional fields.
type Action interface {
	Kind() ActionKind
	// Say is the text the agent speaks for this action.
	Say() string
}

// Ask prompts the user for a field value.
type Ask struct {
	Field  string
	Prompt string
	Tone   string
}

func (a Ask) Kind() ActionKind { return ActionAsk }
func (a Ask) Say() string      { return a.Prompt }

// Set reports committed field updates along with the follow-up question.
type Set struct {
	Updates map[string]string
	Field   string
	Prompt  string
	Tone    string
}

func (a Set) Kind() ActionKind { return ActionSet }
func (a Set) Say() string      { return a.Prompt }

// Done signals that every required field has been collected.
type Done struct {
	Message string
}

func (a Done) Kind() ActionKind { return ActionDone }
func (a Done) Say() string      { return a.Message }

// Clarify asks the user to disambiguate an utterance the agent could not
// route to a field.
type Clarify struct {
	Prompt string
}

func (a Clarify) Kind() ActionKind { return ActionClarify }
func (a Clarify) Say() string      { return a.Prompt }

// Correct reports a field value replaced at the user's request. Focus names
// the field the conversation moves to next, which is the next pending field
// when one remains, not the corrected field itself.
type Correct struct {
	Field  string
	Value  string
	Focus  string
	Prompt string
}

func (a Correct) Kind() ActionKind { return ActionCorrect }
func (a Correct) Say() string      { return a.Prompt }

// Remove reports a field value cleared back to pending.
type Remove struct {
	Field  string
	Prompt string
}

func (a Remove) Kind() ActionKind { return ActionRemove }
func (a Remove) Say() string      { return a.Prompt }

// ErrorAction is the apologetic retry surfaced when the advisory oracle is
// unreachable or returned garbage. Field focus is left unchanged so the next
// turn retries the same field.
type ErrorAction struct {
	Prompt string
}

func (a ErrorAction) Kind() ActionKind { return ActionError }
func (a ErrorAction) Say() string      { return a.Prompt }

// FocusedField returns the field an action directs attention to, if any.
func FocusedField(a Action) string {
	switch v := a.(type) {
	case Ask:
		return v.Field
	case Set:
		return v.Field
	case Correct:
		return v.Focus
	case Remove:
		return v.Field
	default:
		return ""
	}
}
