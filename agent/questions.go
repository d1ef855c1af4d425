package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbxark/voiceform/types"
)

// Question synthesizes the canonical prompt for a field, including the
// format hints, option lists, or scale bounds appropriate to its kind.
func Question(field types.FieldDefinition) string {
	base := field.Label
	if base == "" {
		base = field.Name
	}
	if !strings.HasSuffix(base, "?") {
		base = fmt.Sprintf("What's your %s?", strings.ToLower(base))
	}

	switch field.Kind {
	case types.KindSingleChoice:
		if len(field.Options) > 0 {
			return fmt.Sprintf("%s Choose from: %s", base, strings.Join(field.Options, ", "))
		}
	case types.KindMultiChoice:
		if len(field.Options) > 0 {
			return fmt.Sprintf("%s You can select multiple: %s", base, strings.Join(field.Options, ", "))
		}
	case types.KindNumericScale:
		if field.Min != nil && field.Max != nil {
			return fmt.Sprintf("%s Rate from %s to %s", base, formatBound(*field.Min), formatBound(*field.Max))
		}
	case types.KindDate:
		return fmt.Sprintf("%s Please provide the date (MM/DD/YYYY)", base)
	case types.KindEmail:
		return fmt.Sprintf("%s Please provide your email address", base)
	case types.KindPhone:
		return fmt.Sprintf("%s Please provide your phone number", base)
	case types.KindURL:
		return fmt.Sprintf("%s Please provide a link starting with http:// or https://", base)
	case types.KindPassword:
		return fmt.Sprintf("%s It needs to be at least 6 characters", base)
	}

	if field.Description != "" {
		return fmt.Sprintf("%s %s", base, field.Description)
	}
	return base
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// reask builds the re-prompt after a validation failure. After repeated
// failures on the same field the wording softens and carries the
// correction hint.
func reask(field types.FieldDefinition, message, hint string, frustration int) string {
	if frustration >= 3 {
		out := fmt.Sprintf("No worries, this one can be tricky. %s", message)
		if hint != "" {
			out = fmt.Sprintf("%s %s", out, hint)
		}
		return out
	}
	return fmt.Sprintf("%s Please try again. %s", message, Question(field))
}

// politeRefusal re-prompts when the user tries to skip a required field.
func politeRefusal(field types.FieldDefinition) string {
	return fmt.Sprintf("I understand, but I do need your %s to finish this form. %s",
		strings.ToLower(labelOrName(field)), Question(field))
}

func labelOrName(field types.FieldDefinition) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}
