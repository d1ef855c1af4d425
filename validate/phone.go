package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tbxark/voiceform/types"
)

// "3 times 5" is how callers dictate repeated digits; it expands to "555"
// before digit extraction.
var timesRE = regexp.MustCompile(`(?i)\b(\d)\s*times\s*(\d)\b`)

var nonDigitRE = regexp.MustCompile(`\D`)

const phoneHint = "Digits only is fine, for example 555 123 4567."

func expandRepetitions(v string) string {
	return timesRE.ReplaceAllStringFunc(v, func(m string) string {
		parts := timesRE.FindStringSubmatch(m)
		count, err := strconv.Atoi(parts[1])
		if err != nil || count <= 0 {
			return m
		}
		return strings.Repeat(parts[2], count)
	})
}

func normalizePhone(raw string, _ types.FieldDefinition) Result {
	digits := nonDigitRE.ReplaceAllString(expandRepetitions(raw), "")
	if len(digits) < 7 {
		return fail("Phone number too short. It needs at least 7 digits.", phoneHint)
	}
	if len(digits) > 15 {
		return fail("Phone number too long. It can have at most 15 digits.", phoneHint)
	}
	switch {
	case len(digits) == 10:
		return ok(fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:]))
	case len(digits) == 11 && digits[0] == '1':
		return ok(fmt.Sprintf("+1 (%s) %s-%s", digits[1:4], digits[4:7], digits[7:]))
	default:
		return ok("+" + digits)
	}
}
