// Package validate turns noisy, speech-transcribed user text into typed,
// validated field values. Every normalizer is a pure function of the raw
// text and the field constraints; malformed input is a normal not-valid
// result, never an error or panic.
package validate

import (
	"fmt"
	"strings"

	"github.com/tbxark/voiceform/types"
)

// Result is the outcome of normalizing one raw value. On success Value holds
// the canonical representation; on failure Message is user-facing and Hint
// suggests how to correct the input.
type Result struct {
	OK      bool
	Value   string
	Message string
	Hint    string
}

func ok(value string) Result {
	return Result{OK: true, Value: value}
}

func fail(message, hint string) Result {
	return Result{Message: message, Hint: hint}
}

// Func normalizes and validates raw input against one field definition.
type Func func(raw string, field types.FieldDefinition) Result

// registry declares the supported field kinds and their rules.
var registry = map[types.FieldKind]Func{
	types.KindShortText:    normalizeShortText,
	types.KindLongText:     normalizeLongText,
	types.KindEmail:        normalizeEmail,
	types.KindPhone:        normalizePhone,
	types.KindDate:         normalizeDate,
	types.KindPassword:     normalizePassword,
	types.KindSingleChoice: normalizeSingleChoice,
	types.KindMultiChoice:  normalizeMultiChoice,
	types.KindNumericScale: normalizeNumber,
	types.KindNumber:       normalizeNumber,
	types.KindURL:          normalizeURL,
}

// Supported reports whether kind has registered normalization rules.
func Supported(kind types.FieldKind) bool {
	_, found := registry[kind]
	return found
}

// Kinds returns every registered field kind.
func Kinds() []types.FieldKind {
	out := make([]types.FieldKind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	return out
}

// Normalize runs the registered rules for the field's kind. Empty input is
// rejected for required fields and accepted as the empty value otherwise.
func Normalize(field types.FieldDefinition, raw string) Result {
	if strings.TrimSpace(raw) == "" {
		if field.Required {
			return fail(fmt.Sprintf("%s is required.", fieldTitle(field)), "Please provide a value.")
		}
		return ok("")
	}
	fn, found := registry[field.Kind]
	if !found {
		return fail(fmt.Sprintf("Unsupported field kind %q.", field.Kind), "")
	}
	return fn(raw, field)
}

func fieldTitle(field types.FieldDefinition) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}
