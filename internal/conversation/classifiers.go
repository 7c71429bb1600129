package conversation

import (
	"regexp"
	"strconv"
	"strings"
)

// The classifiers below work on already-normalized text (see Normalize and
// NormalizeForMatch). Commands that must match exactly use equalsAny; loose
// intents use substring matching. Negative signals always win over positive
// ones, so "no gracias" never reads as acceptance.

func isResetCommand(text string) bool {
	return equalsAny(text, "reset", "reiniciar", "menu", "menú", "inicio", "empezar")
}

func isConversationEndCommand(text string) bool {
	return equalsAny(text,
		"salir", "terminar", "finalizar", "fin",
		"adios", "adiós", "chao", "hasta luego", "hasta pronto", "bye")
}

func isNoMoreDoubtsMessage(text string) bool {
	return equalsAny(text,
		"gracias", "muchas gracias", "listo gracias", "listo muchas gracias",
		"eso es todo", "todo claro",
		"no tengo mas dudas", "no tengo más dudas", "ninguna duda")
}

func isAnotherQuestionPrompt(text string) bool {
	return strings.Contains(text, "otra duda") || strings.Contains(text, "otra consulta")
}

func isGreeting(text string) bool {
	return equalsAny(text, "hola", "holi", "buenas", "hello", "hi")
}

func isBotInfoQuery(text string) bool {
	normalized := NormalizeForMatch(text)
	return containsAny(normalized,
		"que tipos de casos atiendes",
		"que tipo de casos atiendes",
		"que casos atiendes",
		"quien eres",
		"que puedes hacer",
		"como funcionas",
		"como funciona",
		"que hace el bot",
		"que haces")
}

func isPolicyAccepted(text string) bool {
	normalized := NormalizeForMatch(text)
	if containsAny(normalized, "no", "no acepto", "no autorizo", "rechazo", "negativo", "prefiero no", "no gracias") {
		return false
	}
	return containsAny(normalized,
		"si", "acepto", "autorizo", "de acuerdo", "ok", "okay", "claro",
		"seguro", "vale", "listo", "dale", "afirmativo", "correcto", "perfecto")
}

func isPolicyRejected(text string) bool {
	normalized := NormalizeForMatch(text)
	return equalsAny(normalized,
		"nope", "no acepto", "no autorizo", "rechazo", "no",
		"negativo", "cancelar", "prefiero no", "no gracias")
}

func isPositiveReply(text string) bool {
	normalized := NormalizeForMatch(text)
	if containsAny(normalized, "no", "negativo", "no gracias", "para nada") {
		return false
	}
	return containsAny(normalized,
		"si", "s", "claro", "de acuerdo", "ok", "okay", "dale", "de una",
		"afirmativo", "correcto", "perfecto", "hagamoslo", "hágamoslo")
}

func isNegativeReply(text string) bool {
	normalized := NormalizeForMatch(text)
	return equalsAny(normalized, "no", "no gracias", "por ahora no", "ahora no")
}

func isScheduleAppointmentRequest(text string) bool {
	normalized := NormalizeForMatch(text)
	return strings.Contains(normalized, "agendar") && strings.Contains(normalized, "cita")
}

func isAppointmentCancelCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	if strings.Contains(normalized, "cancelar") && strings.Contains(normalized, "cita") {
		return true
	}
	return equalsAny(normalized, "cancelar cita", "cancelar", "cancelar una cita") ||
		containsAny(normalized,
			"quiero cancelar la cita", "quiero cancelar una cita",
			"deseo cancelar una cita", "deseo cancelar la cita")
}

func isAppointmentRescheduleCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	if containsAny(normalized, "reprogram", "reprogr") && strings.Contains(normalized, "cita") {
		return true
	}
	return equalsAny(normalized, "reprogramar cita", "reprograr cita", "reprogramar", "reprograr") ||
		containsAny(normalized,
			"reprograr una cita", "quiero reprograr una cita",
			"quiero reprogramar una cita", "deseo reprogramar una cita",
			"quiero reprogramar cita", "deseo reprogramar cita",
			"cambiar cita",
			"quiero reprogramar la cita", "deseo reprogramar la cita")
}

func isAppointmentConfirmCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return equalsAny(normalized,
		"confirmar cita", "confirmar", "confirmo",
		"sin cambios", "no cambios", "esta bien", "está bien")
}

func isAppointmentChangeModeCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return strings.Contains(normalized, "cambiar modalidad") || normalized == "modalidad"
}

func isAppointmentChangeDayCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return strings.Contains(normalized, "cambiar dia") || normalized == "dia"
}

func isAppointmentChangeHourCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return strings.Contains(normalized, "cambiar hora") || normalized == "hora"
}

func isAppointmentChangeFullNameCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return strings.Contains(normalized, "cambiar nombre") || normalized == "nombre"
}

func isAppointmentChangeDocTypeCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return containsAny(normalized, "cambiar tipo de documento", "cambiar tipo documento") ||
		equalsAny(normalized, "tipo de documento", "tipo documento")
}

func isAppointmentChangeDocNumberCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return containsAny(normalized, "cambiar numero de documento", "cambiar número de documento", "cambiar documento") ||
		equalsAny(normalized, "numero de documento", "número de documento", "documento")
}

func isAppointmentChangeEmailCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return containsAny(normalized, "cambiar correo", "cambiar email") ||
		equalsAny(normalized, "correo", "email")
}

func isAppointmentChangePhoneCommand(text string) bool {
	normalized := NormalizeForMatch(text)
	return containsAny(normalized, "cambiar numero", "cambiar número", "cambiar telefono", "cambiar teléfono") ||
		equalsAny(normalized, "numero", "número", "telefono", "teléfono")
}

func isAppointmentAvailabilityQuestion(text string) bool {
	normalized := NormalizeForMatch(text)
	return containsAny(normalized,
		"horas disponibles", "horarios disponibles",
		"que horas hay", "qué horas hay",
		"que horas quedan", "qué horas quedan",
		"cuales horas", "cuáles horas",
		"disponibilidad")
}

func isLaboralSelection(text string) bool {
	return equalsAny(text, "1", "laboral", "consulta laboral", "derecho laboral")
}

func isSoporteSelection(text string) bool {
	return text == "2" || containsAny(text, "soporte", "problema", "error")
}

func isAppointmentSelection(text string) bool {
	if isAppointmentRescheduleCommand(text) || isAppointmentCancelCommand(text) {
		return false
	}
	return text == "3" || containsAny(text, "agendar cita", "agendamiento", "cita")
}

func pickAppointmentMode(text string) Mode {
	normalized := NormalizeForMatch(text)
	if strings.Contains(normalized, "virtual") {
		return ModeVirtual
	}
	if strings.Contains(normalized, "presencial") {
		return ModePresencial
	}
	return ""
}

func pickWeekday(text string) Weekday {
	normalized := NormalizeForMatch(text)
	for _, day := range []Weekday{Lunes, Martes, Miercoles, Jueves, Viernes} {
		if strings.Contains(normalized, string(day)) {
			return day
		}
	}
	return ""
}

func hasWeekendMention(text string) bool {
	normalized := NormalizeForMatch(text)
	return containsAny(normalized, "sabado", "domingo")
}

var hourPattern = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)

// pickHour24 parses times like "8am", "3 pm", "15:00" or "a las 10 de la
// mañana" into a 24h hour. Returns -1 when no hour can be read.
func pickHour24(text string) int {
	normalized := NormalizeForMatch(text)
	match := hourPattern.FindStringSubmatch(normalized)
	if match == nil {
		return -1
	}

	hour, err := strconv.Atoi(match[1])
	if err != nil {
		return -1
	}

	suffix := match[3]
	hasMorning := strings.Contains(normalized, "manana")
	hasAfternoon := strings.Contains(normalized, "tarde")

	switch {
	case suffix == "am":
		if hour == 12 {
			hour = 0
		}
	case suffix == "pm":
		if hour < 12 {
			hour += 12
		}
	case hasMorning:
		if hour == 12 {
			hour = 0
		}
	case hasAfternoon:
		if hour < 12 {
			hour += 12
		}
	}

	if hour < 0 || hour > 23 {
		return -1
	}
	return hour
}

var (
	surveyDigitPattern  = regexp.MustCompile(`\b([1-5])\b`)
	optionNumberPattern = regexp.MustCompile(`\d+`)
	agePattern          = regexp.MustCompile(`\d{1,3}`)
)

// pickSurveyRating reads a 1-5 rating from a digit, a run of star glyphs or
// a spelled-out count ("cinco estrellas"). Returns 0 when unreadable.
func pickSurveyRating(text string) int {
	normalized := NormalizeForMatch(text)
	if match := surveyDigitPattern.FindStringSubmatch(normalized); match != nil {
		rating, _ := strconv.Atoi(match[1])
		return rating
	}

	stars := 0
	for _, r := range normalized {
		if r == '⭐' || r == '★' || r == '*' {
			stars++
		}
	}
	if stars >= 1 && stars <= 5 {
		return stars
	}

	spelled := []struct {
		phrase string
		rating int
	}{
		{"una estrella", 1},
		{"dos estrellas", 2},
		{"tres estrellas", 3},
		{"cuatro estrellas", 4},
		{"cinco estrellas", 5},
	}
	for _, s := range spelled {
		if strings.Contains(normalized, s.phrase) {
			return s.rating
		}
	}
	return 0
}

func isSurveySkipComment(text string) bool {
	normalized := NormalizeForMatch(text)
	return equalsAny(normalized, "omitir", "sin comentario", "no", "ninguno")
}

func pickOptionNumber(text string) int {
	match := optionNumberPattern.FindString(strings.TrimSpace(text))
	if match == "" {
		return 0
	}
	value, err := strconv.Atoi(match)
	if err != nil || value <= 0 {
		return 0
	}
	return value
}

// rescheduleField is the editable slot during an edit-only reschedule.
type rescheduleField string

const (
	fieldModalidad rescheduleField = "modalidad"
	fieldDia       rescheduleField = "dia"
	fieldHora      rescheduleField = "hora"
)

func pickRescheduleField(text string) rescheduleField {
	normalized := NormalizeForMatch(text)
	switch {
	case normalized == "1" || strings.Contains(normalized, "modalidad"):
		return fieldModalidad
	case normalized == "2" || strings.Contains(normalized, "dia"):
		return fieldDia
	case normalized == "3" || strings.Contains(normalized, "hora"):
		return fieldHora
	}
	return ""
}

func pickDocumentType(text string) DocumentType {
	normalized := NormalizeForMatch(text)
	switch {
	case normalized == "cc" || containsAny(normalized, "cedula de ciudadania", "cedula ciudadania"):
		return DocCC
	case normalized == "ce" || containsAny(normalized, "cedula de extranjeria", "cedula extranjeria"):
		return DocCE
	case normalized == "ti" || strings.Contains(normalized, "tarjeta de identidad"):
		return DocTI
	case strings.Contains(normalized, "pasaporte"):
		return DocPasaporte
	case normalized == "ppt" || containsAny(normalized, "permiso por proteccion temporal", "permiso por proteccion"):
		return DocPPT
	}
	return ""
}

var (
	docNumberPattern  = regexp.MustCompile(`^[a-zA-Z0-9.-]{5,20}$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nonDigitPattern   = regexp.MustCompile(`\D`)
	multiSpacePattern = regexp.MustCompile(`\s{2,}`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

func pickDocumentNumber(text string) string {
	compact := whitespacePattern.ReplaceAllString(strings.TrimSpace(text), "")
	if !docNumberPattern.MatchString(compact) {
		return ""
	}
	return compact
}

func pickEmail(text string) string {
	value := strings.ToLower(strings.TrimSpace(text))
	if !emailPattern.MatchString(value) {
		return ""
	}
	return value
}

func pickPhone(text string) string {
	digits := nonDigitPattern.ReplaceAllString(text, "")
	if len(digits) < 7 || len(digits) > 15 {
		return ""
	}
	return digits
}

func pickPhoneFromExternalUserID(externalUserID string) string {
	return pickPhone(externalUserID)
}

func pickFullName(text string) string {
	value := multiSpacePattern.ReplaceAllString(strings.TrimSpace(text), " ")
	if len(value) < 6 {
		return ""
	}
	if len(strings.Split(value, " ")) < 2 {
		return ""
	}
	return value
}

func parseAge(text string) int {
	match := agePattern.FindString(text)
	if match == "" {
		return 0
	}
	age, err := strconv.Atoi(match)
	if err != nil || age <= 0 || age > 120 {
		return 0
	}
	return age
}
