package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/tbxark/voiceform/types"
)

// Conversational lead-ins that speech input commonly carries before the
// actual answer. Longest prefixes first so "my name is" wins over "name is".
var speechPrefixes = []string{
	"my name is",
	"my name's",
	"the name is",
	"name is",
	"you can call me",
	"call me",
	"i am",
	"i'm",
	"it is",
	"it's",
	"this is",
}

var (
	spaceRE    = regexp.MustCompile(`\s+`)
	nameCharRE = regexp.MustCompile(`^[A-Za-z][A-Za-z .'\-]*$`)
)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

func stripSpeechPrefix(s string) string {
	lower := strings.ToLower(s)
	for _, p := range speechPrefixes {
		if strings.HasPrefix(lower, p+" ") {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

// titleCase capitalizes the first letter of every word, keeping hyphenated
// and apostrophed parts ("mary-jane o'brien" becomes "Mary-Jane O'Brien").
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	startOfWord := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '\'' || r == '.':
			startOfWord = true
			b.WriteRune(r)
		case startOfWord:
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func normalizeShortText(raw string, field types.FieldDefinition) Result {
	v := collapseSpace(stripSpeechPrefix(raw))
	if !nameCharRE.MatchString(v) {
		return fail(
			fmt.Sprintf("%s should only contain letters, spaces, hyphens, and apostrophes.", fieldTitle(field)),
			"Try spelling it without numbers or symbols.",
		)
	}
	v = titleCase(v)
	if len([]rune(v)) < 2 {
		return fail(
			fmt.Sprintf("%s is too short.", fieldTitle(field)),
			"Please provide at least two characters.",
		)
	}
	if r := checkPattern(v, field); !r.OK {
		return r
	}
	return ok(v)
}

func normalizeLongText(raw string, field types.FieldDefinition) Result {
	v := strings.TrimSpace(raw)
	if v == "" {
		return fail(fmt.Sprintf("%s cannot be empty.", fieldTitle(field)), "")
	}
	if r := checkPattern(v, field); !r.OK {
		return r
	}
	return ok(v)
}

func checkPattern(v string, field types.FieldDefinition) Result {
	if field.Pattern == "" {
		return ok(v)
	}
	re, err := regexp.Compile(field.Pattern)
	if err != nil {
		// A broken schema pattern must not take the turn down.
		return ok(v)
	}
	if !re.MatchString(v) {
		return fail(
			fmt.Sprintf("Invalid format for %s.", fieldTitle(field)),
			fmt.Sprintf("The value must match %s.", field.Pattern),
		)
	}
	return ok(v)
}
