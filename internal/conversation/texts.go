package conversation

import (
	"fmt"
	"sort"
	"strings"
)

// User-facing dialogue, all in Spanish. The bot persona is SOF-IA, the
// virtual assistant of the university legal clinic (Consultorio Jurídico).
const (
	dataPolicyText = "¡Hola! 👋 Qué gusto saludarte. Antes de comenzar, ¿me autorizas a tratar tus datos personales según nuestra política de privacidad?"

	telegramDataPolicyText = "¡Hola! 👋 Soy Sofia, tu asistente virtual del Consultorio Jurídico. Antes de comenzar, ¿me autorizas a tratar tus datos personales según nuestra política de privacidad?"

	dataPolicyRejectedText = "Gracias por responder. Sin esa autorización no puedo continuar por este medio. Si más adelante quieres continuar, escribe reset. ¡Aquí estaré!"

	followupHintText = "¿Qué deseas hacer ahora?\n↩️ Para realizar otra consulta, escribe: *reset*\n📅 Para agendar una cita, escribe: *si, deseo agendar una cita*\nSi ya tienes una cita, puedes escribir:\n• *reprogramar cita*\n• *cancelar cita*\n🚪 Para finalizar la conversación, escribe: *salir*"

	goodbyeText = "¡Con mucho gusto! Me alegra haberte ayudado. Cuando quieras volver, escribe reset. ¡Que estés muy bien!"

	surveyRatingText = "🌟 Antes de cerrar, ¿cómo calificarías la atención del chatbot?\n\nResponde con una calificación del 1 al 5 (estrellas), donde 5 es excelente."

	surveyCommentText = "¡Gracias por tu calificación! Si deseas, compárteme un comentario sobre tu experiencia.\n\nSi no quieres comentar, escribe: omitir"

	surveyThanksText = "🙏 ¡Gracias por tu retroalimentación! Nos ayuda a mejorar el servicio."

	appointmentOfferText = "Si quieres, también te puedo ayudar a agendar una cita con un asesor. Puedes responder: \"si, deseo agendar una cita\" o \"no, gracias\"."

	appointmentModeText = "Perfecto, vamos con eso. ¿Prefieres que la cita sea presencial o virtual?"

	appointmentUserDataStartText = "Perfecto, antes de agendar la cita te pido unos datos rápidos. Empecemos con tu nombre completo."

	appointmentDocTypeText = "Gracias. Ahora cuéntame tu tipo de documento (CC, CE, TI, PASAPORTE o PPT)."

	preliminaryGuidanceDisclaimer = "Recuerda: esta orientación es preliminar y no reemplaza la atención presencial del Consultorio Jurídico."

	orientationDetailPrompt = "Si deseas una orientación más específica, puedes enviarme información adicional en texto como:\n📅 Fechas importantes\n🧾 Qué ocurrió exactamente\n👥 Quiénes están involucrados\n🎯 Qué resultado esperas\n\nEntre más detalles me compartas, mejor podré orientarte."

	ragNoContentFallback = "Puedo orientarte de forma preliminar con la información del Consultorio. Para darte una respuesta útil ahora, comparte un dato clave del caso (por ejemplo: contrato/fecha en laboral, relación y situación en familia, o hecho principal en penal)."

	menuText = "👋 ¡Bienvenido/a!\n\nSoy SOF-IA 🤖, tu asistente virtual del Consultorio Jurídico.\n\nPuedo orientarte de manera preliminar en temas como:\n\n⚖️ Laboral\n⚖️ Penal\n⚖️ Civil\n⚖️ Familia-alimentos\n⚖️ Constitucional\n⚖️ Administrativo\n⚖️ Conciliación\n⚖️ Tránsito\n⚖️ Disciplinario\n⚖️ Responsabilidad fiscal\n⚖️ Comercial\n\nCuéntame con tranquilidad tu caso o tu duda, y te acompañaré paso a paso 🤝"
)

func dataPolicyTextFor(channel string) string {
	if channel == "telegram" {
		return telegramDataPolicyText
	}
	return dataPolicyText
}

func formatHour(hour24 int) string {
	suffix := "AM"
	if hour24 >= 12 {
		suffix = "PM"
	}
	hour12 := hour24 % 12
	if hour12 == 0 {
		hour12 = 12
	}
	return fmt.Sprintf("%d:00 %s", hour12, suffix)
}

func formatWeekday(day Weekday) string {
	if day == Miercoles {
		return "miércoles"
	}
	return string(day)
}

func appointmentHourHint(mode Mode) string {
	if mode == ModeVirtual {
		return "Horario virtual disponible: 8:00, 9:00, 10:00, 11:00, 12:00, 13:00, 14:00, 15:00, 16:00 y 17:00."
	}
	return "Horario presencial disponible: 13:00, 14:00, 15:00, 16:00 y 17:00."
}

func buildAvailableHoursText(mode Mode, hours24 []int) string {
	if len(hours24) == 0 {
		return fmt.Sprintf("No hay horas disponibles para %s ese día.", mode)
	}
	sorted := append([]int(nil), hours24...)
	sort.Ints(sorted)
	formatted := make([]string, 0, len(sorted))
	for _, hour := range sorted {
		formatted = append(formatted, formatHour(hour))
	}
	return fmt.Sprintf("Horas disponibles para %s: %s.", mode, strings.Join(formatted, ", "))
}

func buildAppointmentConfirmationText(user AppointmentUser, schedule AppointmentSchedule) string {
	return fmt.Sprintf("📝 Confirmación de tu cita\n\nPor favor, revisa que tus datos estén correctos:\n\n👤 Nombre completo: %s\n🪪 Tipo de documento: %s\n🔢 Número de documento: %s\n📧 Correo electrónico: %s\n📱 Número de contacto: %s\n📍 Modalidad: %s\n📅 Día: %s\n⏰ Hora: %s\n\nSi necesitas modificar algún dato, escribe por ejemplo:\n• cambiar nombre\n• cambiar tipo de documento\n• cambiar número de documento\n• cambiar correo\n• cambiar número\n• cambiar modalidad\n• cambiar día\n• cambiar hora\n\nSi todo está correcto, escribe: ✅ confirmar cita",
		user.FullName, user.DocumentType, user.DocumentNumber, user.Email, user.Phone,
		schedule.Mode, formatWeekday(schedule.Day), formatHour(schedule.Hour24))
}

func buildAppointmentScheduledFriendlyText(schedule AppointmentSchedule) string {
	return fmt.Sprintf("✨ *¡Tu cita está confirmada!*\n\n📅 *%s*\n⏰ *%s*\n📍 *Modalidad %s*\n\n¡Te esperamos! 🙌\n\nSi quieres hacer otra consulta, escribe *reset*.\nSi deseas agendar una nueva cita, escribe *si, deseo agendar una cita*.\nSi ya tienes una cita, también puedes reprogramarla o cancelarla escribiendo:\n👉 *reprogramar cita*\n👉 *cancelar cita*\n\nY si prefieres terminar la conversación, escribe *salir*.",
		formatWeekday(schedule.Day), formatHour(schedule.Hour24), schedule.Mode)
}

func buildAppointmentEditConfirmationText(schedule AppointmentSchedule) string {
	return fmt.Sprintf("Confírmame los datos de la cita reprogramada:\n- Modalidad: %s\n- Día: %s\n- Hora: %s\n\nSi deseas cambiar un dato escribe: cambiar modalidad, cambiar dia o cambiar hora.\nSi todo está correcto escribe: confirmar cita.",
		schedule.Mode, formatWeekday(schedule.Day), formatHour(schedule.Hour24))
}

func buildAppointmentCancelConfirmationText(schedule AppointmentSchedule) string {
	return fmt.Sprintf("Vas a cancelar esta cita:\n- Modalidad: %s\n- Día: %s\n- Hora: %s\n\nSi estás de acuerdo escribe: cancelar cita.",
		schedule.Mode, formatWeekday(schedule.Day), formatHour(schedule.Hour24))
}

func buildAppointmentListText(appointments []StoredAppointment) string {
	lines := make([]string, 0, len(appointments))
	for i, item := range appointments {
		statusLabel := "Agendada"
		if item.Status == AppointmentCancelled {
			statusLabel = "Cancelada"
		}
		lines = append(lines, fmt.Sprintf("%d) %s - %s - %s (%s)", i+1, formatWeekday(item.Day), formatHour(item.Hour24), item.Mode, statusLabel))
	}
	return "Estas son tus citas registradas:\n" + strings.Join(lines, "\n")
}

// buildFriendlyOrientationResponse wraps an orientation answer with the
// detail prompt, the preliminary-guidance disclaimer and the followup hint.
func buildFriendlyOrientationResponse(mainText string, detailPrompt string) string {
	if detailPrompt == "" {
		detailPrompt = orientationDetailPrompt
	}
	return fmt.Sprintf("📌 *Orientación preliminar*\n\n%s\n\n%s\n\n⚠️ *Importante:*\n%s\n\n%s",
		mainText, detailPrompt, preliminaryGuidanceDisclaimer, followupHintText)
}
