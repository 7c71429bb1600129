package conversation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and drops the combining marks,
// so "reprogramación" and "reprogramacion" compare equal.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize trims and lower-cases text, keeping accents intact.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// NormalizeForMatch lower-cases and strips diacritics for keyword matching.
func NormalizeForMatch(text string) string {
	lowered := Normalize(text)
	stripped, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		return lowered
	}
	return stripped
}

func containsAny(normalized string, phrases ...string) bool {
	for _, phrase := range phrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

func equalsAny(normalized string, values ...string) bool {
	for _, v := range values {
		if normalized == v {
			return true
		}
	}
	return false
}
