// Package intent is a stateless, pattern-based classifier for user
// utterances. It runs before validation and tags what the user is trying to
// do (skip, correct, remove, or plainly answer) and which field, if any, the
// utterance refers to. Scores are fixed heuristics exposed to the
// orchestrator as hints, never as hard decisions.
package intent

import (
	"regexp"
	"strings"

	"github.com/tbxark/voiceform/types"
)

// Kind is the detected user intent for one utterance.
type Kind string

const (
	Skip       Kind = "skip"
	Correction Kind = "correction"
	Removal    Kind = "removal"
	Answer     Kind = "answer"
)

// Classification is the classifier output. Field is the schema field the
// utterance references, when one could be identified; Value is the
// replacement value extracted from a correction phrase, when present.
type Classification struct {
	Kind       Kind
	Field      string
	Value      string
	Confidence float64
}

// Fixed heuristic confidence scores.
const (
	confidencePattern = 0.9
	confidenceKeyword = 0.7
	confidenceAnswer  = 0.5
)

var skipPhrases = []string{
	"skip",
	"leave blank",
	"leave it blank",
	"leave this blank",
	"won't answer",
	"won't say",
	"won't tell",
	"don't want",
	"do not want",
	"rather not",
	"prefer not",
	"no thanks",
}

// Bare fillers like "next" and "pass" only mean skip when they stand alone;
// inside a sentence they are ordinary words.
var skipStandalone = []string{
	"next",
	"next please",
	"next question",
	"pass",
	"pass on this",
	"pass on this one",
	"move on",
}

var (
	correctionKeywordRE = regexp.MustCompile(`\b(fix|change|update|modify|correct|wrong)\b`)
	removalKeywordRE    = regexp.MustCompile(`\b(remove|delete|clear)\b|\bget rid of\b`)
	wordRE              = regexp.MustCompile(`[a-z0-9_]+`)
)

// Correction phrases that carry both the field and the replacement value,
// like "fix my email to john@gmail.com" or "phone is actually 555 1234".
// Matched case-insensitively against the raw text so the captured value
// keeps its original casing.
var correctionValueREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:fix|correct|change|update|modify)\s+(?:my\s+|the\s+)?([a-z0-9_ ]+?)\s+(?:to|with)\s+(.+)`),
	regexp.MustCompile(`(?i)my\s+([a-z0-9_ ]+?)\s+should\s+be\s+(.+)`),
	regexp.MustCompile(`(?i)(?:my\s+|the\s+)?([a-z0-9_ ]+?)\s+is\s+(?:actually|really)\s+(.+)`),
}

var removalFieldRE = regexp.MustCompile(`(?:remove|delete|clear)\s+(?:my\s+|the\s+)?([a-z0-9_ ]+)|get rid of\s+(?:my\s+|the\s+)?([a-z0-9_ ]+)`)

// Classify tags the intent of text against the fields of the active schema.
func Classify(text string, fields []types.FieldDefinition) Classification {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if isSkip(lower) {
		return Classification{
			Kind:       Skip,
			Field:      findField(lower, fields),
			Confidence: confidenceKeyword,
		}
	}

	for _, re := range correctionValueREs {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			if field := matchFieldKeyword(strings.ToLower(m[1]), fields); field != "" {
				return Classification{
					Kind:       Correction,
					Field:      field,
					Value:      strings.TrimSpace(m[2]),
					Confidence: confidencePattern,
				}
			}
		}
	}
	if correctionKeywordRE.MatchString(lower) {
		return Classification{
			Kind:       Correction,
			Field:      findField(lower, fields),
			Confidence: confidenceKeyword,
		}
	}

	if removalKeywordRE.MatchString(lower) {
		field := ""
		if m := removalFieldRE.FindStringSubmatch(lower); m != nil {
			ref := m[1]
			if ref == "" {
				ref = m[2]
			}
			field = matchFieldKeyword(ref, fields)
		}
		if field == "" {
			field = findField(lower, fields)
		}
		return Classification{
			Kind:       Removal,
			Field:      field,
			Confidence: confidenceKeyword,
		}
	}

	return Classification{
		Kind:       Answer,
		Field:      findField(lower, fields),
		Confidence: confidenceAnswer,
	}
}

// fieldSynonyms returns domain keywords that commonly stand in for a field
// in spoken input.
func fieldSynonyms(field types.FieldDefinition) []string {
	keywords := []string{strings.ToLower(field.Name), strings.ToLower(field.Label)}
	switch field.Kind {
	case types.KindEmail:
		keywords = append(keywords, "email", "e-mail", "mail")
	case types.KindPhone:
		keywords = append(keywords, "phone", "number", "contact", "cell")
	case types.KindDate:
		keywords = append(keywords, "date", "birthday")
	case types.KindURL:
		keywords = append(keywords, "url", "website", "link")
	case types.KindPassword:
		keywords = append(keywords, "password")
	}
	if strings.Contains(strings.ToLower(field.Name), "name") {
		keywords = append(keywords, "name")
	}
	return keywords
}

// findField scans the utterance for a reference to any schema field.
func findField(lower string, fields []types.FieldDefinition) string {
	for _, field := range fields {
		for _, kw := range fieldSynonyms(field) {
			if kw != "" && containsWord(lower, kw) {
				return field.Name
			}
		}
	}
	return ""
}

// matchFieldKeyword resolves an extracted field reference ("email",
// "phone number") to a schema field name.
func matchFieldKeyword(ref string, fields []types.FieldDefinition) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	for _, field := range fields {
		for _, kw := range fieldSynonyms(field) {
			if kw == "" {
				continue
			}
			if strings.Contains(ref, kw) || strings.Contains(kw, ref) {
				return field.Name
			}
		}
	}
	return ""
}

func isSkip(lower string) bool {
	for _, phrase := range skipStandalone {
		if lower == phrase {
			return true
		}
	}
	for _, phrase := range skipPhrases {
		if containsPhrase(lower, phrase) {
			return true
		}
	}
	return false
}

// containsPhrase matches whole words for single-word phrases so "skip"
// does not trigger inside "skipper".
func containsPhrase(lower, phrase string) bool {
	if lower == phrase {
		return true
	}
	if strings.Contains(phrase, " ") {
		return strings.Contains(lower, phrase)
	}
	return containsWord(lower, phrase)
}

func containsWord(lower, kw string) bool {
	if strings.ContainsAny(kw, " _-") {
		return strings.Contains(lower, strings.ReplaceAll(kw, "_", " ")) ||
			strings.Contains(lower, kw)
	}
	for _, w := range wordRE.FindAllString(lower, -1) {
		if w == kw {
			return true
		}
	}
	return false
}
