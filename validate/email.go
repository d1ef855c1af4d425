package validate

import (
	"regexp"
	"strings"

	"github.com/tbxark/voiceform/types"
)

// Spoken-artifact rewrites, applied before whitespace removal. Speech
// transcription renders "@" as "at the rate" (and clipped variants) and "."
// as "dot".
var (
	atTheRateRE   = regexp.MustCompile(`\bat\s+the\s+rate\b`)
	atRateRE      = regexp.MustCompile(`\bat\s+rate\b`)
	theRateRE     = regexp.MustCompile(`\bthe\s+rate\b`)
	bareRateRE    = regexp.MustCompile(`\brate\s+([a-z0-9])`)
	dotComRE      = regexp.MustCompile(`\bdot\s+com\b`)
	bareDotRE     = regexp.MustCompile(`\bdot\b`)
	providerRE    = regexp.MustCompile(`(gmail|yahoo|hotmail|outlook)`)
	providerComRE = regexp.MustCompile(`\b(gmail|yahoo|hotmail|outlook)\s+com\b`)

	emailRE = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9](?:[a-z0-9.\-]*[a-z0-9])?\.[a-z]{2,}$`)
)

const emailHint = "Say it like: name at the rate gmail dot com, or type name@domain.com."

// rewriteSpokenEmail converts speech-transcribed artifacts into email
// punctuation. Input is expected lowercased.
func rewriteSpokenEmail(v string) string {
	v = atTheRateRE.ReplaceAllString(v, "@")
	v = atRateRE.ReplaceAllString(v, "@")
	v = theRateRE.ReplaceAllString(v, "@")
	v = bareRateRE.ReplaceAllString(v, "@$1")
	v = dotComRE.ReplaceAllString(v, ".com")
	v = providerComRE.ReplaceAllString(v, "$1.com")
	v = bareDotRE.ReplaceAllString(v, ".")
	return v
}

// reconstructDomain rebuilds "local@provider.com" when the "@" was lost but
// a known provider token survived ("john123gmail.com").
func reconstructDomain(v string) string {
	loc := providerRE.FindStringIndex(v)
	if loc == nil || loc[0] == 0 {
		return v
	}
	local := strings.Trim(v[:loc[0]], ".")
	if local == "" {
		return v
	}
	provider := v[loc[0]:loc[1]]
	return local + "@" + provider + ".com"
}

func normalizeEmail(raw string, _ types.FieldDefinition) Result {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = rewriteSpokenEmail(v)
	v = strings.Join(strings.Fields(v), "")
	if !strings.Contains(v, "@") {
		v = reconstructDomain(v)
	}
	if emailRE.MatchString(v) {
		return ok(v)
	}
	at := strings.Index(v, "@")
	switch {
	case at < 0:
		return fail("Email must contain @ symbol. Format: name@domain.com", emailHint)
	case !strings.Contains(v[at+1:], "."):
		return fail("Email must contain a domain. Format: name@domain.com", emailHint)
	default:
		return fail("Invalid email format. Please use format: name@domain.com", emailHint)
	}
}
