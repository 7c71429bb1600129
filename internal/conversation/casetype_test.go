package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferCaseTypeLabel(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"me echaron del trabajo sin liquidacion", "Laboral"},
		{"quiero iniciar un divorcio", "Familia"},
		{"me pusieron un comparendo injusto", "Tránsito"},
		{"necesito presentar una tutela", "Constitucional"},
		{"necesito ayuda urgente", ""},
		// Bot-info questions never resolve to a case type.
		{"¿qué tipos de casos atiendes?", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inferCaseTypeLabel(tt.text), "text: %q", tt.text)
	}
}

func TestShouldUseQuickOrientation(t *testing.T) {
	// Short query with a recognized area and no detail.
	assert.True(t, shouldUseQuickOrientation("tengo una duda de familia", "Familia"))
	// Dates or amounts count as specific context.
	assert.False(t, shouldUseQuickOrientation("me despidieron el 15/03/2026", "Laboral"))
	// Area-specific detail keywords count too.
	assert.False(t, shouldUseQuickOrientation("duda sobre custodia de mis hijos", "Familia"))
	// No recognized area, no shortcut.
	assert.False(t, shouldUseQuickOrientation("tengo una duda", ""))
}

func TestBuildRagServiceErrorFallback(t *testing.T) {
	urgent := buildRagServiceErrorFallback("sufro violencia intrafamiliar y estoy en riesgo", "")
	assert.Contains(t, urgent, "Línea 155")
	assert.Contains(t, urgent, "emergencias (123)")

	plain := buildRagServiceErrorFallback("duda sobre mi liquidacion laboral", "Laboral")
	assert.Contains(t, plain, "problema técnico")
	assert.NotContains(t, plain, "Línea 155")
}

func TestEvaluateLaboralCompetence(t *testing.T) {
	over := evaluateLaboralCompetence("reclamo una liquidacion de 25 smlmv")
	assert.Equal(t, CompetenceNotCompetent, over.Status)
	assert.Contains(t, over.Reason, "20 SMLMV")

	under := evaluateLaboralCompetence("me deben el salario de dos meses")
	assert.Equal(t, CompetenceCompetent, under.Status)

	other := evaluateLaboralCompetence("quiero la custodia de mi hija")
	assert.Equal(t, CompetenceNotCompetent, other.Status)

	unknown := evaluateLaboralCompetence("tengo una consulta")
	assert.Equal(t, CompetenceUnknown, unknown.Status)
}
