package rag

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Answer is the knowledge-base response to a legal query.
type Answer struct {
	Text            string            `json:"answer"`
	Citations       []json.RawMessage `json:"citations"`
	UsedChunks      []json.RawMessage `json:"usedChunks"`
	Status          string            `json:"status"`
	ConfidenceScore float64           `json:"confidenceScore"`
	BestScore       *float64          `json:"bestScore"`
}

const (
	StatusOK            = "ok"
	StatusLowConfidence = "low_confidence"
	StatusNoContext     = "no_context"
)

// FallbackKind classifies how the orchestrator should present an answer.
type FallbackKind string

const (
	// FallbackNone means the answer can be shown as-is.
	FallbackNone FallbackKind = "none"
	// FallbackNeedsContext means the knowledge base wants more detail from
	// the user before answering.
	FallbackNeedsContext FallbackKind = "needs_context"
	// FallbackNoContent means the knowledge base had nothing relevant.
	FallbackNoContent FallbackKind = "no_content"
	// FallbackError means the knowledge base could not be reached.
	FallbackError FallbackKind = "error"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeForMatch(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	stripped, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		return lowered
	}
	return stripped
}

// minEvidenceScore is the retrieval score below which a low-confidence
// answer is treated as unsupported.
const minEvidenceScore = 0.2

// PickFallbackKind decides whether an answer is usable or the user should be
// asked for more context instead.
func PickFallbackKind(answer *Answer) FallbackKind {
	if answer == nil {
		return FallbackError
	}
	hasEvidence := len(answer.Citations) > 0 || len(answer.UsedChunks) > 0

	if answer.Status == StatusNoContext && !hasEvidence {
		return FallbackNeedsContext
	}
	if answer.Status == StatusLowConfidence {
		if hasEvidence && answer.BestScore != nil && *answer.BestScore >= minEvidenceScore {
			return FallbackNone
		}
		return FallbackNeedsContext
	}

	normalized := normalizeForMatch(answer.Text)
	if strings.Contains(normalized, "no tengo suficiente informacion en el documento") ||
		strings.Contains(normalized, "no encontre suficiente soporte") {
		if hasEvidence {
			return FallbackNone
		}
		return FallbackNeedsContext
	}
	return FallbackNone
}

var (
	sourceRefPattern   = regexp.MustCompile(`(?i)\(\s*source\s*:\s*\d+\s*\)`)
	labeledRefPattern  = regexp.MustCompile(`(?i)\(\s*[a-z0-9_\- ]{2,60}\s*:\s*\d+\s*\)`)
	sourcesFooter      = regexp.MustCompile(`(?s)\n\nFuentes:.*$`)
	noInfoPhrases      = []*regexp.Regexp{
		regexp.MustCompile(`(?i)no tengo suficiente informaci[oó]n en el documento[^.]*\.?`),
		regexp.MustCompile(`(?i)no encontr[eé] suficiente soporte[^.]*\.?`),
		regexp.MustCompile(`(?i)no hay informaci[oó]n suficiente en el documento[^.]*\.?`),
	}
	multiSpacePattern = regexp.MustCompile(`[ \t]{2,}`)
)

// Sanitize strips retrieval artifacts from an answer: inline source
// references, the sources footer and boilerplate no-information sentences.
func Sanitize(text string) string {
	cleaned := sourceRefPattern.ReplaceAllString(text, "")
	cleaned = labeledRefPattern.ReplaceAllString(cleaned, "")
	cleaned = sourcesFooter.ReplaceAllString(cleaned, "")
	for _, phrase := range noInfoPhrases {
		cleaned = phrase.ReplaceAllString(cleaned, "")
	}
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// maxAnswerRunes keeps answers inside the WhatsApp-friendly length limit.
const maxAnswerRunes = 3000

// Truncate shortens text to the message length limit, preferring to cut at a
// paragraph break, sentence end or word boundary near the end.
func Truncate(text string) string {
	return truncateAt(text, maxAnswerRunes)
}

func truncateAt(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	candidate := string(r[:max-1])
	floor := max * 7 / 10
	cut := -1
	for _, sep := range []string{"\n\n", ". ", " "} {
		if idx := strings.LastIndex(candidate, sep); idx > floor {
			cut = idx
			break
		}
	}
	if cut > 0 {
		candidate = candidate[:cut]
	}
	return strings.TrimRight(candidate, " \t\n") + "…"
}
