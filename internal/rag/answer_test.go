package rag

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func evidence() []json.RawMessage {
	return []json.RawMessage{json.RawMessage(`{"id":1}`)}
}

func floatPtr(v float64) *float64 { return &v }

func TestPickFallbackKind(t *testing.T) {
	tests := []struct {
		name   string
		answer *Answer
		want   FallbackKind
	}{
		{"nil answer", nil, FallbackError},
		{"ok with text", &Answer{Text: "respuesta útil", Status: StatusOK}, FallbackNone},
		{"no context without evidence", &Answer{Status: StatusNoContext}, FallbackNeedsContext},
		{"no context with evidence", &Answer{Status: StatusNoContext, Citations: evidence()}, FallbackNone},
		{"low confidence without evidence", &Answer{Status: StatusLowConfidence}, FallbackNeedsContext},
		{
			"low confidence with strong evidence",
			&Answer{Status: StatusLowConfidence, UsedChunks: evidence(), BestScore: floatPtr(0.5)},
			FallbackNone,
		},
		{
			"low confidence with weak evidence",
			&Answer{Status: StatusLowConfidence, UsedChunks: evidence(), BestScore: floatPtr(0.1)},
			FallbackNeedsContext,
		},
		{
			"no-information phrase without evidence",
			&Answer{Text: "No tengo suficiente información en el documento para responder.", Status: StatusOK},
			FallbackNeedsContext,
		},
		{
			"no-information phrase with evidence",
			&Answer{Text: "No tengo suficiente información en el documento.", Status: StatusOK, Citations: evidence()},
			FallbackNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickFallbackKind(tt.answer))
		})
	}
}

func TestSanitize(t *testing.T) {
	in := "El despido sin justa causa genera indemnización (Source: 3).  " +
		"No tengo suficiente información en el documento sobre montos.\n\nFuentes:\n1. Documento interno"
	got := Sanitize(in)
	assert.NotContains(t, got, "Source")
	assert.NotContains(t, got, "Fuentes")
	assert.NotContains(t, got, "No tengo suficiente información")
	assert.Contains(t, got, "indemnización")

	assert.Equal(t, "texto limpio", Sanitize("texto   limpio"))
	assert.Equal(t, "", Sanitize("  "))
}

func TestTruncate(t *testing.T) {
	short := "respuesta corta"
	assert.Equal(t, short, Truncate(short))

	sentence := "Una frase completa con suficiente contenido. "
	long := strings.Repeat(sentence, 200)
	got := Truncate(long)

	assert.LessOrEqual(t, len([]rune(got)), maxAnswerRunes)
	assert.True(t, strings.HasSuffix(got, "…"))
	// The cut lands on a sentence boundary, not mid-word.
	trimmed := strings.TrimSuffix(got, "…")
	assert.True(t, strings.HasSuffix(trimmed, "contenido"))
}
