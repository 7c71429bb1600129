package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyClassifiers(t *testing.T) {
	tests := []struct {
		text     string
		accepted bool
		rejected bool
	}{
		{"si", true, false},
		{"si, acepto", true, false},
		{"autorizo el tratamiento", true, false},
		{"de acuerdo", true, false},
		{"no", false, true},
		{"no acepto", false, true},
		{"no gracias", false, true},
		{"quiero saber mas", false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.accepted, isPolicyAccepted(tt.text), "accepted: %q", tt.text)
		assert.Equal(t, tt.rejected, isPolicyRejected(tt.text), "rejected: %q", tt.text)
	}
}

func TestPickHour24(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"8am", 8},
		{"8 am", 8},
		{"3pm", 15},
		{"15:00", 15},
		{"a las 10 de la mañana", 10},
		{"a las 3 de la tarde", 15},
		{"12am", 0},
		{"12pm", 12},
		{"sin hora", -1},
		{"", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pickHour24(tt.text), "text: %q", tt.text)
	}
}

func TestPickSurveyRating(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"5", 5},
		{"le doy un 3", 3},
		{"⭐⭐⭐⭐⭐", 5},
		{"★★", 2},
		{"cinco estrellas", 5},
		{"una estrella", 1},
		{"excelente", 0},
		{"10", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pickSurveyRating(tt.text), "text: %q", tt.text)
	}
}

func TestPickWeekday(t *testing.T) {
	assert.Equal(t, Miercoles, pickWeekday("el miércoles por favor"))
	assert.Equal(t, Lunes, pickWeekday("lunes"))
	assert.Equal(t, Weekday(""), pickWeekday("sabado"))
	assert.True(t, hasWeekendMention("el sábado"))
	assert.False(t, hasWeekendMention("el jueves"))
}

func TestPickDocumentType(t *testing.T) {
	tests := []struct {
		text string
		want DocumentType
	}{
		{"cc", DocCC},
		{"cédula de ciudadanía", DocCC},
		{"CE", DocCE},
		{"tarjeta de identidad", DocTI},
		{"pasaporte", DocPasaporte},
		{"ppt", DocPPT},
		{"licencia", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pickDocumentType(tt.text), "text: %q", tt.text)
	}
}

func TestPickContactFields(t *testing.T) {
	assert.Equal(t, "Ana María Pérez", pickFullName("  Ana  María   Pérez "))
	assert.Equal(t, "", pickFullName("Ana"))
	assert.Equal(t, "", pickFullName("abc"))

	assert.Equal(t, "ana@example.com", pickEmail(" Ana@Example.com "))
	assert.Equal(t, "", pickEmail("ana@@example"))

	assert.Equal(t, "3001234567", pickPhone("300 123 4567"))
	assert.Equal(t, "", pickPhone("12"))
	assert.Equal(t, "573001234567", pickPhoneFromExternalUserID("573001234567@c.us"))

	assert.Equal(t, "1234567890", pickDocumentNumber(" 1234567890 "))
	assert.Equal(t, "", pickDocumentNumber("12"))
}

func TestAppointmentCommands(t *testing.T) {
	assert.True(t, isScheduleAppointmentRequest("si, deseo agendar una cita"))
	assert.True(t, isAppointmentCancelCommand("cancelar cita"))
	assert.True(t, isAppointmentRescheduleCommand("reprogramar cita"))
	assert.True(t, isAppointmentRescheduleCommand("cambiar cita"))
	assert.True(t, isAppointmentConfirmCommand("confirmar cita"))
	assert.False(t, isAppointmentSelection("reprogramar cita"))
	assert.False(t, isAppointmentSelection("cancelar cita"))
	assert.True(t, isAppointmentSelection("3"))
	assert.True(t, isAppointmentSelection("agendar cita"))
}

func TestMenuSelections(t *testing.T) {
	assert.True(t, isLaboralSelection("1"))
	assert.True(t, isLaboralSelection("laboral"))
	assert.True(t, isSoporteSelection("2"))
	assert.True(t, isSoporteSelection("tengo un problema con la app"))
	assert.False(t, isLaboralSelection("algo distinto"))
}

func TestResetAndEndCommands(t *testing.T) {
	assert.True(t, isResetCommand("reset"))
	assert.True(t, isResetCommand("menu"))
	assert.False(t, isResetCommand("resetear todo"))
	assert.True(t, isConversationEndCommand("salir"))
	assert.True(t, isConversationEndCommand("adiós"))
	assert.False(t, isConversationEndCommand("quiero salir de dudas"))
}
