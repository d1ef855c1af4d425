package validate

import (
	"fmt"
	"strings"

	"github.com/tbxark/voiceform/types"
)

func optionsList(field types.FieldDefinition) string {
	return strings.Join(field.Options, ", ")
}

func normalizeSingleChoice(raw string, field types.FieldDefinition) Result {
	v := collapseSpace(raw)
	for _, opt := range field.Options {
		if v == opt {
			return ok(opt)
		}
	}
	return fail(
		fmt.Sprintf("Value must be one of: %s.", optionsList(field)),
		fmt.Sprintf("Say one of the listed options exactly, for example %q.", firstOption(field)),
	)
}

func normalizeMultiChoice(raw string, field types.FieldDefinition) Result {
	var picked []string
	var invalid []string
	for _, token := range strings.Split(raw, ",") {
		token = collapseSpace(token)
		if token == "" {
			continue
		}
		if matchOption(token, field.Options) {
			picked = append(picked, token)
		} else {
			invalid = append(invalid, token)
		}
	}
	if len(invalid) > 0 {
		return fail(
			fmt.Sprintf("Invalid choices: %s. Value must be one of: %s.",
				strings.Join(invalid, ", "), optionsList(field)),
			"Separate multiple choices with commas, using the exact option names.",
		)
	}
	if len(picked) == 0 {
		return fail(
			fmt.Sprintf("Value must be one of: %s.", optionsList(field)),
			"Separate multiple choices with commas, using the exact option names.",
		)
	}
	return ok(strings.Join(picked, ", "))
}

func matchOption(token string, options []string) bool {
	for _, opt := range options {
		if token == opt {
			return true
		}
	}
	return false
}

func firstOption(field types.FieldDefinition) string {
	if len(field.Options) > 0 {
		return field.Options[0]
	}
	return ""
}
