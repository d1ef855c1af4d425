// Package agent is the turn orchestrator: the state machine that classifies
// user intent, reconciles the advisory oracle's proposal with server-side
// validation, and emits the next deterministic action while mutating the
// session store.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tbxark/voiceform/intent"
	"github.com/tbxark/voiceform/oracle"
	"github.com/tbxark/voiceform/session"
	"github.com/tbxark/voiceform/types"
	"github.com/tbxark/voiceform/validate"
)

// ErrSchema marks a form schema unusable for session start. It is the only
// error class that aborts a turn outright; validation and oracle failures
// are always recovered into a structured action.
var ErrSchema = errors.New("invalid form schema")

const (
	// DefaultHistoryWindow bounds the recent messages sent to the oracle.
	DefaultHistoryWindow = 12
	// DefaultOracleTimeout bounds the single external oracle call per turn.
	DefaultOracleTimeout = 15 * time.Second
)

const oracleApology = "Sorry, I ran into a problem understanding that. Could you say it again?"

// Flow drives one form-filling conversation per session. The session lock
// is held for the whole duration of a turn, so turns on the same session
// serialize while different sessions proceed independently.
type Flow struct {
	registry *session.Registry
	oracle   oracle.Oracle
	window   session.Window
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Flow.
type Option func(*Flow)

// WithHistoryWindow sets how many recent non-system messages the oracle
// context carries.
func WithHistoryWindow(n int) Option {
	return func(f *Flow) { f.window = session.Window{Size: n} }
}

// WithOracleTimeout bounds the per-turn oracle call.
func WithOracleTimeout(d time.Duration) Option {
	return func(f *Flow) { f.timeout = d }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) { f.logger = logger }
}

// NewFlow builds the orchestrator around an injected registry and oracle.
func NewFlow(registry *session.Registry, orc oracle.Oracle, opts ...Option) *Flow {
	f := &Flow{
		registry: registry,
		oracle:   orc,
		window:   session.Window{Size: DefaultHistoryWindow},
		timeout:  DefaultOracleTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start begins a conversation for sessionID against form and returns the
// first question. A schema with no fields fails with ErrSchema and no
// session is created.
func (f *Flow) Start(sessionID string, form *types.FormSchema) (*StartResult, error) {
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	sess := f.registry.GetOrCreate(sessionID, form.ID)
	sess.Lock()
	defer sess.Unlock()
	defer sess.Touch()

	for _, field := range form.Fields {
		sess.FieldState(field.Name)
	}
	sess.Started = true
	sess.AddMessage(types.RoleSystem, sessionPreamble(form))

	next, found := nextPendingField(form, sess)
	if !found {
		sess.Completed = true
		return &StartResult{SessionID: sessionID, Complete: true}, nil
	}
	question := Question(next)
	sess.CurrentField = next.Name
	sess.AddMessage(types.RoleAgent, question)
	return &StartResult{SessionID: sessionID, NextQuestion: question}, nil
}

// Turn processes one user utterance and returns the next action. Exactly
// one oracle call is made per turn, and only on the plain-answer path.
func (f *Flow) Turn(ctx context.Context, sessionID string, form *types.FormSchema, userText string) (*Response, error) {
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	sess := f.registry.GetOrCreate(sessionID, form.ID)
	sess.Lock()
	defer sess.Unlock()
	defer sess.Touch()

	sess.AddMessage(types.RoleUser, userText)

	var action types.Action
	if !sess.Started {
		// First turn for this session: mark started and ask the first
		// pending field. No advisory call is made.
		for _, field := range form.Fields {
			sess.FieldState(field.Name)
		}
		sess.Started = true
		sess.AddMessage(types.RoleSystem, sessionPreamble(form))
		if next, more := nextPendingField(form, sess); more {
			action = types.Ask{Field: next.Name, Prompt: Question(next), Tone: "friendly"}
		} else {
			action = f.finish(sess, form)
		}
	} else {
		action = f.nextAction(ctx, sess, form, userText)
	}
	sess.AddMessage(types.RoleAgent, action.Say())
	if focus := types.FocusedField(action); focus != "" {
		sess.CurrentField = focus
	} else if action.Kind() == types.ActionDone {
		sess.CurrentField = ""
	}

	progress := sess.Progress(form)
	sess.Completed = progress.Complete
	return &Response{
		Action:    action,
		Reply:     action.Say(),
		FormState: sess.FormValues(),
		Progress:  progress,
		Complete:  sess.Completed,
	}, nil
}

// Reset discards a session. Resetting an unknown session is a no-op.
func (f *Flow) Reset(sessionID string) bool {
	return f.registry.Delete(sessionID)
}

// Info returns an immutable snapshot of the session for inspection.
func (f *Flow) Info(sessionID string) (session.Snapshot, bool) {
	return f.registry.Snapshot(sessionID)
}

func (f *Flow) nextAction(ctx context.Context, sess *session.State, form *types.FormSchema, userText string) types.Action {
	cls := intent.Classify(userText, form.Fields)
	f.logger.Debug("classified intent",
		"session", sess.ID, "intent", string(cls.Kind),
		"field", cls.Field, "confidence", cls.Confidence)

	switch cls.Kind {
	case intent.Skip:
		return f.handleSkip(sess, form, cls)
	case intent.Correction:
		return f.handleCorrection(sess, form, cls)
	case intent.Removal:
		return f.handleRemoval(sess, form, cls)
	default:
		return f.handleAnswer(ctx, sess, form, userText, cls)
	}
}

// handleSkip transitions a non-required field to skipped and moves on.
// Required fields stay pending and are re-asked politely.
func (f *Flow) handleSkip(sess *session.State, form *types.FormSchema, cls intent.Classification) types.Action {
	target := cls.Field
	if target == "" {
		target = sess.CurrentField
	}
	field, found := form.Field(target)
	if !found {
		return types.Clarify{Prompt: "Which field would you like to skip?"}
	}
	if field.Required {
		return types.Ask{Field: field.Name, Prompt: politeRefusal(field), Tone: "helpful"}
	}

	sess.SetFieldStatus(field.Name, nil, types.StatusSkipped)
	next, more := nextPendingField(form, sess)
	if !more {
		return f.finish(sess, form)
	}
	prompt := fmt.Sprintf("No problem, we'll skip that. %s", Question(next))
	return types.Ask{Field: next.Name, Prompt: prompt, Tone: "friendly"}
}

// handleCorrection routes "fix X to Y" style input straight through the
// validation engine, bypassing the oracle.
func (f *Flow) handleCorrection(sess *session.State, form *types.FormSchema, cls intent.Classification) types.Action {
	if cls.Field == "" {
		return types.Clarify{Prompt: "I'd like to help you make changes. Which field would you like to update?"}
	}
	field, found := form.Field(cls.Field)
	if !found {
		return types.Clarify{Prompt: "I'd like to help you make changes. Which field would you like to update?"}
	}
	if cls.Value == "" {
		return types.Ask{
			Field:  field.Name,
			Prompt: fmt.Sprintf("Sure. %s", Question(field)),
			Tone:   "helpful",
		}
	}

	res := validate.Normalize(field, cls.Value)
	if !res.OK {
		return f.rejectValue(sess, field, res)
	}
	if err := sess.ApplyUpdates(map[string]*string{field.Name: &res.Value}); err != nil {
		f.logger.Error("apply correction failed", "session", sess.ID, "error", err)
		return types.ErrorAction{Prompt: oracleApology}
	}
	sess.ResetFrustration()

	if sess.Progress(form).Complete {
		return f.finish(sess, form)
	}
	// Focus moves with the question: asking about the next pending field
	// while still focused on the corrected one would misroute a following
	// bare skip or removal.
	prompt := fmt.Sprintf("Updated your %s to %s.", strings.ToLower(labelOrName(field)), displayValue(field, res.Value))
	focus := field.Name
	if next, more := nextPendingField(form, sess); more {
		prompt = fmt.Sprintf("%s %s", prompt, Question(next))
		focus = next.Name
	}
	return types.Correct{Field: field.Name, Value: res.Value, Focus: focus, Prompt: prompt}
}

// handleRemoval clears a field back to pending.
func (f *Flow) handleRemoval(sess *session.State, form *types.FormSchema, cls intent.Classification) types.Action {
	target := cls.Field
	if target == "" {
		target = sess.CurrentField
	}
	field, found := form.Field(target)
	if !found {
		return types.Clarify{Prompt: "Which field would you like me to clear?"}
	}
	if err := sess.ApplyUpdates(map[string]*string{field.Name: nil}); err != nil {
		f.logger.Error("apply removal failed", "session", sess.ID, "error", err)
		return types.ErrorAction{Prompt: oracleApology}
	}
	prompt := fmt.Sprintf("Removed your %s. Would you like to enter a new one?", strings.ToLower(labelOrName(field)))
	return types.Remove{Field: field.Name, Prompt: prompt}
}

// handleAnswer is the general path: build the context bundle, consult the
// oracle once, re-validate everything it proposed, and commit atomically.
func (f *Flow) handleAnswer(ctx context.Context, sess *session.State, form *types.FormSchema, userText string, cls intent.Classification) types.Action {
	req := &oracle.Request{
		Fields:       form.Fields,
		States:       sess.Fields,
		CurrentField: sess.CurrentField,
		UserText:     userText,
		UserIntent:   string(cls.Kind),
		History:      f.window.Trim(sess.Messages),
		Completion:   sess.Progress(form),
	}

	octx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	decision, err := f.oracle.Decide(octx, req)
	if err != nil {
		// Focus stays where it was so the next turn retries the same field.
		f.logger.Warn("oracle call failed", "session", sess.ID, "error", err)
		prompt := oracleApology
		if current, known := form.Field(sess.CurrentField); known {
			prompt = fmt.Sprintf("%s %s", oracleApology, Question(current))
		}
		return types.ErrorAction{Prompt: prompt}
	}

	updates := decision.Updates
	for name := range updates {
		if _, known := form.Field(name); !known {
			// Unknown fields are dropped, never stored and never surfaced
			// as a validation message.
			f.logger.Warn("oracle proposed unknown field", "session", sess.ID, "field", name)
			delete(updates, name)
		}
	}

	// Validate in schema order; the first failure rejects the whole batch.
	normalized := make(map[string]*string, len(updates))
	for _, field := range form.OrderedFields() {
		value, present := updates[field.Name]
		if !present {
			continue
		}
		if value == nil {
			normalized[field.Name] = nil
			continue
		}
		res := validate.Normalize(field, *value)
		if !res.OK {
			return f.rejectValue(sess, field, res)
		}
		v := res.Value
		normalized[field.Name] = &v
	}

	if len(normalized) > 0 {
		if err := sess.ApplyUpdates(normalized); err != nil {
			f.logger.Error("apply updates failed", "session", sess.ID, "error", err)
			return types.ErrorAction{Prompt: oracleApology}
		}
		sess.ResetFrustration()
	}

	// Completion wins over whatever the oracle proposed.
	if sess.Progress(form).Complete {
		return f.finish(sess, form)
	}

	next, more := nextPendingField(form, sess)
	focus := decision.FieldFocus
	if _, known := form.Field(focus); !known || focus == "" {
		focus = ""
		if more {
			focus = next.Name
		}
	}
	ask := decision.Ask
	if ask == "" && more {
		ask = Question(next)
	}
	if ask == "" {
		ask = "What else would you like to update?"
	}

	committed := collectedValues(normalized)
	switch {
	case len(committed) > 0:
		return types.Set{Updates: committed, Field: focus, Prompt: ask, Tone: decision.Tone}
	case decision.Action == string(types.ActionClarify):
		return types.Clarify{Prompt: ask}
	default:
		return types.Ask{Field: focus, Prompt: ask, Tone: decision.Tone}
	}
}

// rejectValue records a failed attempt and builds the re-ask. Nothing from
// the same batch is committed.
func (f *Flow) rejectValue(sess *session.State, field types.FieldDefinition, res validate.Result) types.Action {
	prev := sess.FieldState(field.Name)
	sess.SetFieldStatus(field.Name, prev.Value, types.StatusInvalid)
	frustration := sess.BumpFrustration()
	return types.Ask{
		Field:  field.Name,
		Prompt: reask(field, res.Message, res.Hint, frustration),
		Tone:   "helpful",
	}
}

func (f *Flow) finish(sess *session.State, form *types.FormSchema) types.Action {
	sess.Completed = true
	return types.Done{
		Message: fmt.Sprintf("Perfect! I've collected all the required information. %s", form.Confirmation()),
	}
}

// sessionPreamble is the system message opening every conversation. It
// survives history trimming, so the oracle keeps the form context even in
// long sessions.
func sessionPreamble(form *types.FormSchema) string {
	title := form.Title
	if title == "" {
		title = form.ID
	}
	return fmt.Sprintf("Collecting responses for %q (%d fields).", title, len(form.Fields))
}

// nextPendingField returns the next field to ask: lowest order first,
// declaration order breaking ties. Skipped and collected fields are never
// re-offered unless a removal reset them to pending.
func nextPendingField(form *types.FormSchema, sess *session.State) (types.FieldDefinition, bool) {
	for _, field := range form.OrderedFields() {
		st := sess.FieldState(field.Name)
		if st.Status == types.StatusPending || st.Status == types.StatusInvalid {
			return field, true
		}
	}
	return types.FieldDefinition{}, false
}

// collectedValues extracts the committed non-nil updates for the Set action.
func collectedValues(normalized map[string]*string) map[string]string {
	out := make(map[string]string, len(normalized))
	for name, value := range normalized {
		if value != nil {
			out[name] = *value
		}
	}
	return out
}

// displayValue masks values that must never be echoed back.
func displayValue(field types.FieldDefinition, value string) string {
	if field.Kind == types.KindPassword {
		return "********"
	}
	return value
}
