package validate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tbxark/voiceform/types"
)

func normalizeNumber(raw string, field types.FieldDefinition) Result {
	v := strings.TrimSpace(raw)
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fail("Please enter a valid number.", numberHint(field))
	}
	if field.Min != nil && n < *field.Min {
		return fail(fmt.Sprintf("Value must be >= %s.", formatNumber(*field.Min)), numberHint(field))
	}
	if field.Max != nil && n > *field.Max {
		return fail(fmt.Sprintf("Value must be <= %s.", formatNumber(*field.Max)), numberHint(field))
	}
	return ok(formatNumber(n))
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func numberHint(field types.FieldDefinition) string {
	if field.Min != nil && field.Max != nil {
		return fmt.Sprintf("Pick a number between %s and %s.",
			formatNumber(*field.Min), formatNumber(*field.Max))
	}
	return "Digits only, for example 42."
}

func normalizeURL(raw string, _ types.FieldDefinition) Result {
	v := strings.TrimSpace(raw)
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fail(
			"Please enter a valid URL starting with http:// or https://.",
			"For example https://example.com.",
		)
	}
	return ok(v)
}

func normalizePassword(raw string, _ types.FieldDefinition) Result {
	v := strings.TrimSpace(raw)
	if len([]rune(v)) < 6 {
		return fail("Password must be at least 6 characters long.", "")
	}
	if len([]rune(v)) > 128 {
		return fail("Password must be at most 128 characters long.", "")
	}
	return ok(v)
}
