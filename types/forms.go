package types

import (
	"fmt"
	"sync"
	"time"
)

// FormStore is a concurrent in-memory registry of form schemas. Schemas are
// registered once at startup and read-only afterwards; sessions never mutate
// them.
type FormStore struct {
	mu    sync.RWMutex
	forms map[string]*FormSchema
}

func NewFormStore() *FormStore {
	return &FormStore{forms: make(map[string]*FormSchema)}
}

// Add validates and registers a schema, assigning an id when absent.
func (s *FormStore) Add(form *FormSchema) (*FormSchema, error) {
	if err := form.Validate(); err != nil {
		return nil, fmt.Errorf("register form: %w", err)
	}
	if form.ID == "" {
		form.ID = NewID()
	}
	if form.CreatedAt.IsZero() {
		form.CreatedAt = time.Now()
	}
	for i := range form.Fields {
		if form.Fields[i].ID == "" {
			form.Fields[i].ID = NewID()
		}
	}
	s.mu.Lock()
	s.forms[form.ID] = form
	s.mu.Unlock()
	return form, nil
}

// Get returns the schema for id.
func (s *FormStore) Get(id string) (*FormSchema, bool) {
	s.mu.RLock()
	form, ok := s.forms[id]
	s.mu.RUnlock()
	return form, ok
}

// List returns all registered schemas.
func (s *FormStore) List() []*FormSchema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*FormSchema, 0, len(s.forms))
	for _, f := range s.forms {
		out = append(out, f)
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }

// SampleForms returns the seeded schemas the host registers at startup so
// the service is usable without an external form source.
func SampleForms() []*FormSchema {
	return []*FormSchema{
		{
			ID:          "student_registration",
			Title:       "Student Registration Form",
			Description: "Complete registration for new students",
			Fields: []FieldDefinition{
				{Name: "full_name", Kind: KindShortText, Label: "Full Name", Required: true, Order: 1},
				{Name: "email", Kind: KindEmail, Label: "Email Address", Required: true, Order: 2},
				{Name: "phone", Kind: KindPhone, Label: "Phone Number", Required: true, Order: 3},
				{
					Name: "program", Kind: KindSingleChoice, Label: "Program of Interest",
					Options:  []string{"Computer Science", "Engineering", "Business", "Arts", "Other"},
					Required: true, Order: 4,
				},
				{
					Name: "experience", Kind: KindNumericScale, Label: "Rate your programming experience",
					Min: floatPtr(1), Max: floatPtr(10), Order: 5,
				},
				{
					Name: "additional_info", Kind: KindLongText, Label: "Additional Information",
					Description: "Tell us anything else you'd like us to know", Order: 8,
				},
			},
		},
		{
			ID:          "feedback_survey",
			Title:       "Customer Feedback Survey",
			Description: "Help us improve our services",
			Fields: []FieldDefinition{
				{
					Name: "overall_satisfaction", Kind: KindNumericScale,
					Label: "Overall satisfaction with our service",
					Min:   floatPtr(1), Max: floatPtr(5), Required: true, Order: 1,
				},
				{
					Name: "service_quality", Kind: KindSingleChoice,
					Label:    "How would you rate our service quality?",
					Options:  []string{"Excellent", "Good", "Average", "Poor", "Very Poor"},
					Required: true, Order: 2,
				},
				{
					Name: "recommend", Kind: KindSingleChoice,
					Label:    "Would you recommend us to others?",
					Options:  []string{"Definitely", "Probably", "Not sure", "Probably not", "Definitely not"},
					Required: true, Order: 3,
				},
				{
					Name: "comments", Kind: KindLongText, Label: "Additional Comments",
					Description: "Please share any specific feedback or suggestions", Order: 5,
				},
			},
		},
	}
}
