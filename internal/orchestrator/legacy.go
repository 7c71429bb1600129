package orchestrator

import (
	"regexp"
	"strconv"
	"strings"
)

// The legacy flow is the original menu-driven intake kept behind
// ORCH_FLOW_MODE=legacy: a short intent/city/age questionnaire that hands
// off to a human advisor, with keyword-based intent detection.

type legacyDecision struct {
	responseText string
	intent       string
	step         string
	profilePatch map[string]any
}

var legacyAgePattern = regexp.MustCompile(`\d{1,3}`)

func legacyClassifyIntent(text string) (intent string, reset bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(normalized, "menu") || strings.Contains(normalized, "menú") || strings.Contains(normalized, "cambiar"):
		return "general", true
	case strings.Contains(normalized, "laboral") || strings.Contains(normalized, "trabajo") || strings.Contains(normalized, "empleo"):
		return "consulta_laboral", false
	case strings.Contains(normalized, "soporte") || strings.Contains(normalized, "error") || strings.Contains(normalized, "problema"):
		return "soporte", false
	}
	return "general", false
}

func legacyIsGreeting(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, greeting := range []string{"hola", "buenas", "buenos dias", "buenos días", "buenas tardes", "buenas noches"} {
		if strings.HasPrefix(normalized, greeting) {
			return true
		}
	}
	return false
}

func decideNextAction(intent, step, text, rawText string) legacyDecision {
	detected, reset := legacyClassifyIntent(text)

	if reset || (legacyIsGreeting(text) && step == "ready_for_handoff") {
		return legacyDecision{
			responseText: "Listo 👋 ¿En qué te puedo ayudar? Responde: laboral o soporte.",
			intent:       "general",
			step:         "ask_intent",
		}
	}

	if intent == "" || intent == "general" {
		intent = detected
	}

	switch intent {
	case "consulta_laboral":
		switch step {
		case "ask_city":
			return legacyDecision{
				responseText: "Gracias. ¿Cuál es tu edad?",
				intent:       intent,
				step:         "ask_age",
				profilePatch: map[string]any{"city": strings.TrimSpace(rawText)},
			}
		case "ask_age":
			age := legacyParseAge(text)
			if age == 0 {
				return legacyDecision{
					responseText: "¿Me confirmas tu edad en números?",
					intent:       intent,
					step:         "ask_age",
				}
			}
			return legacyDecision{
				responseText: "Listo ✅ Ya tengo tu información. Te paso con un asesor.",
				intent:       intent,
				step:         "ready_for_handoff",
				profilePatch: map[string]any{"age": age},
			}
		default:
			return legacyDecision{
				responseText: "Perfecto. ¿En qué ciudad estás?",
				intent:       intent,
				step:         "ask_city",
			}
		}

	case "soporte":
		if step == "collecting_issue" {
			return legacyDecision{
				responseText: "Perfecto. Ya registré tu caso. Te paso con un asesor.",
				intent:       intent,
				step:         "ready_for_handoff",
				profilePatch: map[string]any{"issue": strings.TrimSpace(rawText)},
			}
		}
		return legacyDecision{
			responseText: "Entendido. Cuéntame cuál es el problema.",
			intent:       intent,
			step:         "collecting_issue",
		}
	}

	return legacyDecision{
		responseText: "Para ayudarte mejor, responde: laboral o soporte.",
		intent:       "general",
		step:         "ask_intent",
	}
}

func legacyParseAge(text string) int {
	match := legacyAgePattern.FindString(text)
	if match == "" {
		return 0
	}
	age, err := strconv.Atoi(match)
	if err != nil || age <= 0 || age > 120 {
		return 0
	}
	return age
}
