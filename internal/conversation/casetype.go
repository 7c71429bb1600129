package conversation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Case-type inference drives the preliminary orientation: a short query with
// a recognizable area skips the knowledge base entirely, and fallbacks are
// phrased per area.

type caseTypeMatcher struct {
	label string
	keys  []string
}

var caseTypeMatchers = []caseTypeMatcher{
	{
		label: "Laboral",
		keys: []string{
			"laboral", "despido", "me echaron", "me saco de la empresa",
			"terminacion de contrato", "terminaron mi contrato", "liquidacion",
			"empleador", "contrato de trabajo", "salario", "no me pagan",
			"no me pagaron", "cesantias", "vacaciones", "prestaciones",
			"indemnizacion", "acoso laboral",
		},
	},
	{
		label: "Penal",
		keys: []string{
			"penal", "victima", "acusador", "querellable", "homicidio", "hurto",
			"fiscalia", "violacion", "violar", "abuso sexual", "agresion sexual",
			"acoso sexual", "violencia sexual", "violencia intrafamiliar",
			"me golpe", "golpearon", "maltrat", "amenaz", "extorsion",
			"costillas rotas", "lesion", "denunciar",
		},
	},
	{
		label: "Civil",
		keys: []string{
			"civil", "jueces municipales", "compraventa", "arrendamiento",
			"incumplimiento de contrato", "deuda", "pagare", "pagaré",
		},
	},
	{
		label: "Familia",
		keys: []string{
			"familia", "patria potestad", "custodia", "comisarias de familia",
			"separar", "separacion", "divorcio", "divorci", "pareja",
			"matrimonio", "esposa", "esposo", "union marital",
		},
	},
	{label: "Constitucional", keys: []string{"tutela", "cumplimiento", "populares", "derecho de peticion"}},
	{label: "Administrativo", keys: []string{"administrativa", "superintendencia", "sede administrativa", "recursos", "peticion", "queja", "reclamacion"}},
	{label: "Conciliación", keys: []string{"conciliacion", "centro de conciliacion", "conciliables", "conciliar"}},
	{label: "Tránsito", keys: []string{"transito", "contravencionales", "comparendo", "multa", "accidente de transito", "choque"}},
	{label: "Disciplinario", keys: []string{"disciplinario", "procuraduria", "falta disciplinaria"}},
	{label: "Responsabilidad fiscal", keys: []string{"responsabilidad fiscal", "contraloria", "hallazgo fiscal"}},
	{label: "Comercial", keys: []string{"comercial", "camara de comercio", "sociedad", "empresa", "mercantil"}},
}

func inferCaseTypeFromText(text string) string {
	normalized := NormalizeForMatch(text)
	for _, matcher := range caseTypeMatchers {
		for _, key := range matcher.keys {
			if strings.Contains(normalized, key) {
				return matcher.label
			}
		}
	}
	return ""
}

func inferCaseTypeLabel(query string) string {
	if isBotInfoQuery(query) {
		return ""
	}
	return inferCaseTypeFromText(query)
}

func hasLaborEvidence(text string) bool {
	normalized := NormalizeForMatch(text)
	return containsAny(normalized,
		"trabajo", "laboral", "empleo", "empleador", "despido", "echaron",
		"me echaron", "desvincularon", "terminaron mi contrato", "renuncia",
		"liquidacion", "liquidación", "prestaciones", "indemnizacion",
		"no me pagan", "no me pagaron", "contrato de trabajo", "salario",
		"nomina", "nómina", "horas extra", "incapacidad laboral",
		"acoso laboral", "arl", "eps")
}

var digitsOrDatePattern = regexp.MustCompile(`\b\d{1,2}[/\-]\d{1,2}([/\-]\d{2,4})?\b|\b\d+\b`)

// hasSpecificContextInQuery decides whether the user already gave enough
// detail for a grounded answer: long queries, dates or amounts, or
// area-specific detail keywords all count.
func hasSpecificContextInQuery(query, caseType string) bool {
	normalized := NormalizeForMatch(query)
	words := strings.Fields(normalized)

	if len(words) >= 12 {
		return true
	}
	if digitsOrDatePattern.MatchString(normalized) {
		return true
	}

	switch caseType {
	case "Familia":
		return containsAny(normalized, "hijos", "custodia", "alimentos", "bienes", "deudas", "mutuo acuerdo", "violencia", "separados")
	case "Laboral":
		return containsAny(normalized, "contrato", "despido", "liquidacion", "salario", "prestaciones", "indemnizacion", "fecha")
	case "Penal":
		return containsAny(normalized, "denuncia", "fiscalia", "hechos", "pruebas", "testigos", "lesiones")
	}
	return len(words) >= 8
}

// shouldUseQuickOrientation is true for short queries with a recognized case
// type and no specific detail: those get canned guidance without a
// knowledge-base round trip.
func shouldUseQuickOrientation(query, caseType string) bool {
	if caseType == "" {
		return false
	}
	if hasSpecificContextInQuery(query, caseType) {
		return false
	}
	return len(strings.Fields(NormalizeForMatch(query))) <= 7
}

func buildNeedsContextFallback(caseType string) string {
	switch caseType {
	case "Laboral":
		return "Para orientarte mejor en este caso laboral, necesito algunos datos puntuales."
	case "Familia":
		return "Para orientarte bien en este caso de familia, necesito algunos datos puntuales."
	case "Penal":
		return "Para orientarte mejor en este caso penal, necesito algunos datos puntuales."
	case "Constitucional":
		return "Para orientarte mejor en este caso constitucional, necesito algunos datos puntuales."
	case "":
		return "Para orientarte mejor, necesito algunos datos puntuales del caso."
	}
	return fmt.Sprintf("Para orientarte mejor en este caso de %s, necesito algunos datos puntuales.", strings.ToLower(caseType))
}

func buildClarifyingQuestions(caseType string) string {
	switch caseType {
	case "Familia":
		return "Para darte una guía más útil, respóndeme estas preguntas rápidas:\n1) ¿El divorcio sería de mutuo acuerdo o hay conflicto?\n2) ¿Hay hijos menores o acuerdos de custodia/alimentos?\n3) ¿Hay bienes o deudas por repartir?\n\nCon esas respuestas te doy una ruta clara paso a paso."
	case "Laboral":
		return "Para darte una orientación más precisa, respóndeme estas preguntas:\n1) ¿Qué tipo de contrato tenías (verbal, fijo, indefinido, prestación)?\n2) ¿En qué fecha fue el despido o el hecho principal?\n3) ¿Te deben salarios, prestaciones o indemnización?\n\nCon eso te explico la mejor ruta de acción."
	case "Penal":
		return "Para orientarte mejor, ayúdame con estos datos:\n1) ¿Qué ocurrió exactamente y cuándo pasó?\n2) ¿Ya denunciaste o estás en alguna etapa del proceso?\n3) ¿Tienes pruebas o testigos?\n\nCon esto te indico la ruta más adecuada."
	case "Constitucional":
		return "Para orientarte mejor, compárteme:\n1) ¿Qué derecho consideras vulnerado?\n2) ¿Quién lo vulneró (entidad o particular)?\n3) ¿Ya presentaste petición o reclamación previa?\n\nCon eso te digo si procede tutela u otra acción."
	}
	return "Para orientarte mejor, respóndeme estas preguntas:\n1) ¿Cuál es el hecho principal?\n2) ¿Cuándo ocurrió?\n3) ¿Qué resultado esperas obtener?\n\nCon eso te doy una orientación más concreta."
}

func buildNoContentFallback(caseType string) string {
	if caseType == "" {
		return ragNoContentFallback
	}
	return fmt.Sprintf("No encontré suficiente contenido del consultorio para responder con seguridad este caso de %s. Si quieres, dame más detalles y lo intento de nuevo.", strings.ToLower(caseType))
}

func buildGeneralGuidanceByCaseType(caseType string) string {
	switch caseType {
	case "Familia":
		return "Con lo que me compartes, en un caso de familia puedes empezar por reunir documentos clave (registro civil, pruebas de convivencia o de la situación) y definir si buscas conciliación o demanda según el objetivo (por ejemplo, divorcio, custodia o alimentos)."
	case "Laboral":
		return "Con lo que me indicas, en un caso laboral conviene reunir contrato, desprendibles de pago y comunicaciones con el empleador para revisar posibles vulneraciones y definir la ruta (conciliación, reclamación o demanda)."
	case "Penal":
		return "Con lo que narras, en materia penal es importante conservar pruebas, registrar hechos con fechas y acudir a denuncia formal cuando corresponda para activar la ruta de protección y judicialización."
	case "Constitucional":
		return "Con la información actual, puedes identificar el derecho fundamental posiblemente vulnerado y la entidad responsable para evaluar acciones como derecho de petición o tutela."
	}
	return "Con la información que me compartes ya puedo darte una orientación preliminar y una ruta inicial de acción."
}

func isUrgentProtectionContext(query string) bool {
	normalized := NormalizeForMatch(query)
	return containsAny(normalized,
		"violacion", "abuso sexual", "agresion sexual", "violencia sexual",
		"violencia intrafamiliar", "me pego", "me golpeo", "amenaza",
		"riesgo", "peligro")
}

// buildRagServiceErrorFallback produces the degraded-mode answer when the
// knowledge base cannot be reached. Urgent protection contexts get safety
// lines with the national emergency numbers.
func buildRagServiceErrorFallback(query, caseType string) string {
	inferred := caseType
	if inferred == "" {
		inferred = inferCaseTypeFromText(query)
	}
	baseGuidance := buildGeneralGuidanceByCaseType(inferred)

	if isUrgentProtectionContext(query) {
		return fmt.Sprintf("No pude consultar la base jurídica en este momento, pero sí puedo darte una ruta inicial de seguridad.\n\n%s\n\nSi estás en riesgo inmediato, contacta emergencias (123) y, si aplica, la Línea 155 (orientación a mujeres víctimas de violencia en Colombia). También puedes acudir a Fiscalía o Comisaría de Familia según el caso.", baseGuidance)
	}

	return fmt.Sprintf("No pude consultar la base jurídica en este momento por un problema técnico. Mientras se restablece, te comparto una orientación inicial:\n\n%s", baseGuidance)
}

// LaboralCompetenceStatus says whether the clinic can take a labor matter.
type LaboralCompetenceStatus string

const (
	CompetenceCompetent    LaboralCompetenceStatus = "competent"
	CompetenceNotCompetent LaboralCompetenceStatus = "not_competent"
	CompetenceUnknown      LaboralCompetenceStatus = "unknown"
)

// LaboralCompetenceAssessment carries the verdict and, when negative, why.
type LaboralCompetenceAssessment struct {
	Status LaboralCompetenceStatus
	Reason string
}

var smlmvPattern = regexp.MustCompile(`(\d{1,4})\s*(smlmv|salarios? minimos?)`)

// evaluateLaboralCompetence screens a labor matter against the clinic's
// scope: amounts above 20 SMLMV and clearly non-labor areas are out.
func evaluateLaboralCompetence(text string) LaboralCompetenceAssessment {
	normalized := NormalizeForMatch(text)

	laboralKeywords := []string{
		"despido", "liquidacion", "salario", "prestaciones", "cesantias",
		"vacaciones", "indemnizacion", "seguridad social", "incapacidad",
		"contrato laboral", "empleador", "trabajo",
	}
	nonLaboralKeywords := []string{
		"homicidio", "hurto", "divorcio", "custodia", "alimentos", "sucesion",
		"herencia", "compraventa", "arrendamiento", "transito", "comparendo",
	}

	hasLaboral := containsAny(normalized, laboralKeywords...)
	hasNonLaboral := containsAny(normalized, nonLaboralKeywords...)

	if match := smlmvPattern.FindStringSubmatch(normalized); match != nil {
		if amount, err := strconv.Atoi(match[1]); err == nil && amount > 20 {
			return LaboralCompetenceAssessment{
				Status: CompetenceNotCompetent,
				Reason: "La cuantía reportada supera el límite de 20 SMLMV para asuntos laborales del consultorio jurídico.",
			}
		}
	}

	if hasNonLaboral && !hasLaboral {
		return LaboralCompetenceAssessment{
			Status: CompetenceNotCompetent,
			Reason: "El asunto reportado parece corresponder a un área diferente a laboral.",
		}
	}
	if hasLaboral {
		return LaboralCompetenceAssessment{Status: CompetenceCompetent}
	}
	return LaboralCompetenceAssessment{Status: CompetenceUnknown}
}
