package types

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// FieldKind is the semantic type of a form field. It selects which
// normalization and validation rules apply to raw user input.
type FieldKind string

const (
	KindShortText    FieldKind = "short_text"
	KindLongText     FieldKind = "long_text"
	KindEmail        FieldKind = "email"
	KindPhone        FieldKind = "phone"
	KindDate         FieldKind = "date"
	KindPassword     FieldKind = "password"
	KindSingleChoice FieldKind = "single_choice"
	KindMultiChoice  FieldKind = "multi_choice"
	KindNumericScale FieldKind = "numeric_scale"
	KindURL          FieldKind = "url"
	KindNumber       FieldKind = "number"
)

// FieldDefinition describes one field of a form. Definitions are immutable
// once a session has started against the owning schema.
type FieldDefinition struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Kind        FieldKind `json:"kind"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	Options     []string  `json:"options,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	Min         *float64  `json:"min,omitempty"`
	Max         *float64  `json:"max,omitempty"`
	Order       int       `json:"order"`
}

// FormSchema is an ordered collection of field definitions. It is owned
// externally and treated as an immutable input for the lifetime of a session.
type FormSchema struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	Description         string            `json:"description,omitempty"`
	Fields              []FieldDefinition `json:"fields"`
	ConfirmationMessage string            `json:"confirmation_message,omitempty"`
	CreatedAt           time.Time         `json:"created_at,omitempty"`
}

// DefaultConfirmationMessage is used when a schema does not configure one.
const DefaultConfirmationMessage = "Thank you for your response!"

// Validate checks the minimum shape a schema must have before a session may
// start against it. A schema with no fields or duplicate field names is a
// hard error.
func (s *FormSchema) Validate() error {
	if s == nil {
		return fmt.Errorf("schema is nil")
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %q has no fields", s.ID)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %q contains a field without a name", s.ID)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema %q contains duplicate field %q", s.ID, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Field returns the definition for name, if the schema declares it.
func (s *FormSchema) Field(name string) (FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

// OrderedFields returns the fields sorted by the asking sequence: lowest
// Order first, declaration order breaking ties.
func (s *FormSchema) OrderedFields() []FieldDefinition {
	out := make([]FieldDefinition, len(s.Fields))
	copy(out, s.Fields)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// Confirmation returns the configured completion message or the default.
func (s *FormSchema) Confirmation() string {
	if s.ConfirmationMessage != "" {
		return s.ConfirmationMessage
	}
	return DefaultConfirmationMessage
}

// FieldStatus tracks the collection progress of a single field.
type FieldStatus string

const (
	StatusPending   FieldStatus = "pending"
	StatusCollected FieldStatus = "collected"
	StatusInvalid   FieldStatus = "invalid"
	StatusRefused   FieldStatus = "refused"
	StatusSkipped   FieldStatus = "skipped"
)

// FieldState is the per-session progress of one field. Value always holds
// the normalized representation once collected.
type FieldState struct {
	Value       *string     `json:"value"`
	Status      FieldStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	LastAttempt time.Time   `json:"last_attempt,omitempty"`
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Message is one conversation entry. Messages are append-only, ordered by
// insertion, with monotonically non-decreasing timestamps within a session.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Progress is the completion summary of a session against its schema. It is
// always recomputed from field states, never stored.
type Progress struct {
	TotalFields       int     `json:"total_fields"`
	CompletedFields   int     `json:"completed_fields"`
	TotalRequired     int     `json:"total_required"`
	CompletedRequired int     `json:"completed_required"`
	Complete          bool    `json:"is_complete"`
	Percentage        float64 `json:"progress_percentage"`
}

// ComputeProgress derives the completion summary from the schema and the
// current field states.
func ComputeProgress(schema *FormSchema, states map[string]FieldState) Progress {
	var p Progress
	for _, f := range schema.Fields {
		p.TotalFields++
		if f.Required {
			p.TotalRequired++
		}
		if st, ok := states[f.Name]; ok && st.Status == StatusCollected {
			p.CompletedFields++
			if f.Required {
				p.CompletedRequired++
			}
		}
	}
	p.Complete = p.CompletedRequired >= p.TotalRequired
	if p.TotalFields > 0 {
		p.Percentage = float64(p.CompletedFields) / float64(p.TotalFields) * 100
	}
	return p
}

// NewID returns a fresh opaque identifier for forms, fields and sessions.
func NewID() string {
	return uuid.NewString()
}
