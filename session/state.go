package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/tbxark/voiceform/types"
)

// State is the durable per-conversation record: message history, per-field
// progress, and ephemeral context flags. Exactly one State exists per
// session id; it owns its messages and field states exclusively.
//
// All mutation happens under the embedded lock, which callers hold for the
// whole duration of a turn so concurrent turns on the same session
// serialize. Use Snapshot to read without retaining live references.
type State struct {
	sync.Mutex

	ID           string
	FormID       string
	Messages     []types.Message
	Fields       map[string]types.FieldState
	CurrentField string
	CreatedAt    time.Time
	Started      bool
	Completed    bool
	Context      map[string]any

	// lastActivity is read lock-free by the eviction scan, so it lives in
	// an atomic rather than under the session lock.
	lastActivity atomic.Int64

	// doc is the exported form document, maintained by JSON merge patch:
	// committed updates map directly onto RFC 7386 patches where a null
	// value removes the member.
	doc []byte
}

func newState(id, formID string) *State {
	now := time.Now()
	s := &State{
		ID:        id,
		FormID:    formID,
		Fields:    make(map[string]types.FieldState),
		CreatedAt: now,
		Context:   make(map[string]any),
		doc:       []byte("{}"),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// AddMessage appends a conversation entry. Timestamps never go backwards
// within a session even if the wall clock does.
func (s *State) AddMessage(role types.Role, content string) {
	now := time.Now()
	if n := len(s.Messages); n > 0 && now.Before(s.Messages[n-1].Timestamp) {
		now = s.Messages[n-1].Timestamp
	}
	s.Messages = append(s.Messages, types.Message{Role: role, Content: content, Timestamp: now})
}

// FieldState returns the state for name, creating it lazily as pending.
func (s *State) FieldState(name string) types.FieldState {
	st, found := s.Fields[name]
	if !found {
		st = types.FieldState{Status: types.StatusPending}
		s.Fields[name] = st
	}
	return st
}

// SetFieldStatus transitions one field. Invalid and refused transitions
// increment the attempt counter; field states are never deleted, only
// transitioned.
func (s *State) SetFieldStatus(name string, value *string, status types.FieldStatus) {
	st := s.FieldState(name)
	st.Value = value
	st.Status = status
	st.LastAttempt = time.Now()
	if status == types.StatusInvalid || status == types.StatusRefused {
		st.Attempts++
	}
	s.Fields[name] = st
}

// ApplyUpdates commits validated updates: field states move to collected
// (or back to pending when the value is nil) and the exported form document
// is merge-patched in one step.
func (s *State) ApplyUpdates(updates map[string]*string) error {
	if len(updates) == 0 {
		return nil
	}
	patch, err := sonic.Marshal(updates)
	if err != nil {
		return fmt.Errorf("marshal update patch: %w", err)
	}
	doc, err := jsonpatch.MergePatch(s.doc, patch)
	if err != nil {
		return fmt.Errorf("merge patch form document: %w", err)
	}
	s.doc = doc
	for name, value := range updates {
		if value == nil {
			s.SetFieldStatus(name, nil, types.StatusPending)
		} else {
			s.SetFieldStatus(name, value, types.StatusCollected)
		}
	}
	return nil
}

// FormValues decodes the exported form document.
func (s *State) FormValues() map[string]string {
	out := make(map[string]string)
	if err := sonic.Unmarshal(s.doc, &out); err != nil {
		return map[string]string{}
	}
	return out
}

// Touch refreshes the activity timestamp that eviction checks.
func (s *State) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the last committed turn (or creation).
func (s *State) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Progress recomputes the completion summary against schema.
func (s *State) Progress(schema *types.FormSchema) types.Progress {
	return types.ComputeProgress(schema, s.Fields)
}

const frustrationKey = "frustration"

// BumpFrustration increments the consecutive-invalid-attempt counter and
// returns the new value.
func (s *State) BumpFrustration() int {
	n, _ := s.Context[frustrationKey].(int)
	n++
	s.Context[frustrationKey] = n
	return n
}

// ResetFrustration clears the counter after a successful commit.
func (s *State) ResetFrustration() {
	delete(s.Context, frustrationKey)
}

// Snapshot is an immutable copy of a session for export and inspection.
type Snapshot struct {
	ID           string                      `json:"id"`
	FormID       string                      `json:"form_id"`
	Messages     []types.Message             `json:"messages"`
	Fields       map[string]types.FieldState `json:"fields"`
	CurrentField string                      `json:"current_field,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	LastActivity time.Time                   `json:"last_activity"`
	Started      bool                        `json:"started"`
	Completed    bool                        `json:"completed"`
	FormValues   map[string]string           `json:"form_values"`
}

// snapshotLocked copies out every mutable structure. Callers hold the
// session lock.
func (s *State) snapshotLocked() Snapshot {
	msgs := make([]types.Message, len(s.Messages))
	copy(msgs, s.Messages)
	fields := make(map[string]types.FieldState, len(s.Fields))
	for name, st := range s.Fields {
		if st.Value != nil {
			v := *st.Value
			st.Value = &v
		}
		fields[name] = st
	}
	return Snapshot{
		ID:           s.ID,
		FormID:       s.FormID,
		Messages:     msgs,
		Fields:       fields,
		CurrentField: s.CurrentField,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity(),
		Started:      s.Started,
		Completed:    s.Completed,
		FormValues:   s.FormValues(),
	}
}
