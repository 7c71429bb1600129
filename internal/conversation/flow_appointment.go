package conversation

import (
	"context"
	"fmt"
	"time"
)

const (
	restartUserDataText   = "Falta completar algunos datos de contacto. Vamos de nuevo. Indica tu nombre completo."
	restartRescheduleText = "Falta completar datos de la cita para reprogramar. Indica de nuevo el día (lunes a viernes)."
	bookingReason         = "Cita agendada desde chatbot"
)

func (p Profile) draftMode() Mode {
	if p.Appointment == nil {
		return ""
	}
	return p.Appointment.Mode
}

func (p Profile) draftDay() Weekday {
	if p.Appointment == nil {
		return ""
	}
	return pickWeekday(string(p.Appointment.Day))
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}

// handleAppointmentOffer processes the yes/no answer to the booking offer
// made after the user runs out of questions.
func (e *Engine) handleAppointmentOffer(ctx context.Context, in Input, state State) (*Result, error) {
	if isScheduleAppointmentRequest(in.Text) || isPositiveReply(in.Text) {
		state.Profile = state.Profile.markConsultationAsActive()
		state.Stage = StageAwaitingUserFullName
		return e.respond(ctx, in, state, appointmentUserDataStartText, map[string]any{"appointmentFlow": "started"})
	}
	if isNegativeReply(in.Text) {
		state.Profile.Appointment = nil
		state.Stage = StageAwaitingQuestion
		return e.respond(ctx, in, state, "Perfecto, continuamos sin agendar cita. "+followupHintText, nil)
	}
	return e.respond(ctx, in, state, "Por favor responde: \"si, deseo agendar una cita\" o \"no, gracias\".", nil)
}

// afterUserField advances the data collection, jumping back to the
// confirmation summary when the user came from a change-field command.
func (e *Engine) afterUserField(ctx context.Context, in Input, state State, next Stage, prompt string) (*Result, error) {
	if state.Profile.ReturnToConfirm {
		user := state.Profile.userData()
		schedule := state.Profile.scheduleData()
		if user != nil && schedule != nil {
			state.Profile = state.Profile.clearReturnToConfirm()
			state.Stage = StageAwaitingAppointmentOK
			return e.respond(ctx, in, state, buildAppointmentConfirmationText(*user, *schedule), nil)
		}
	}
	state.Stage = next
	return e.respond(ctx, in, state, prompt, nil)
}

func (e *Engine) handleUserFullName(ctx context.Context, in Input, state State) (*Result, error) {
	name := pickFullName(in.RawText)
	if name == "" {
		return e.respond(ctx, in, state, "No pude leer tu nombre completo. Escríbelo con nombre y apellido (mínimo dos palabras).", nil)
	}
	state.Profile = state.Profile.withUser(func(u *AppointmentUser) { u.FullName = name })
	return e.afterUserField(ctx, in, state, StageAwaitingUserDocType, appointmentDocTypeText)
}

func (e *Engine) handleUserDocType(ctx context.Context, in Input, state State) (*Result, error) {
	docType := pickDocumentType(in.Text)
	if docType == "" {
		return e.respond(ctx, in, state, "No entendí el tipo de documento. Responde con una de estas opciones: CC, CE, TI, PASAPORTE o PPT.", nil)
	}
	state.Profile = state.Profile.withUser(func(u *AppointmentUser) { u.DocumentType = docType })
	return e.afterUserField(ctx, in, state, StageAwaitingUserDocNumber, "Perfecto. Ahora escribe tu número de documento.")
}

func (e *Engine) handleUserDocNumber(ctx context.Context, in Input, state State) (*Result, error) {
	number := pickDocumentNumber(in.Text)
	if number == "" {
		return e.respond(ctx, in, state, "El número de documento no parece válido. Escríbelo solo con números y letras (entre 5 y 20 caracteres).", nil)
	}
	state.Profile = state.Profile.withUser(func(u *AppointmentUser) { u.DocumentNumber = number })
	return e.afterUserField(ctx, in, state, StageAwaitingUserEmail, "Gracias. Ahora escribe tu correo electrónico.")
}

func (e *Engine) handleUserEmail(ctx context.Context, in Input, state State) (*Result, error) {
	email := pickEmail(in.RawText)
	if email == "" {
		return e.respond(ctx, in, state, "El correo no parece válido. Escríbelo de nuevo (ejemplo: nombre@dominio.com).", nil)
	}
	state.Profile = state.Profile.withUser(func(u *AppointmentUser) { u.Email = email })

	if state.Profile.ReturnToConfirm {
		return e.afterUserField(ctx, in, state, StageAwaitingUserPhone, "Por último, indícame tu número de contacto.")
	}

	// WhatsApp external ids carry the phone number; offer it instead of
	// asking the user to retype it.
	if detected := pickPhoneFromExternalUserID(in.ExternalUserID); detected != "" {
		state.Profile = state.Profile.withUser(func(u *AppointmentUser) { u.Phone = detected })
		state.Stage = StageAwaitingUserPhoneConfirm
		text := fmt.Sprintf("Perfecto. Encontré este número de contacto: %s\n\nResponde con una de estas opciones:\n1) Sí, usar este número\n2) No, quiero cambiarlo\n\nTambién puedes escribir directamente el nuevo número (ejemplo: 3001234567).", detected)
		return e.respond(ctx, in, state, text, nil)
	}

	state.Stage = StageAwaitingUserPhone
	return e.respond(ctx, in, state, "Por último, indícame tu número de contacto.", nil)
}

func (e *Engine) handleUserPhoneConfirm(ctx context.Context, in Input, state State) (*Result, error) {
	if provided := pickPhone(in.Text); provided != "" {
		state.Profile = state.Profile.withUser(func(u *AppointmentUser) { u.Phone = provided })
		return e.afterUserField(ctx, in, state, StageAwaitingAppointmentMode,
			fmt.Sprintf("Perfecto. Guardé el número %s. %s", provided, appointmentModeText))
	}

	if in.Text == "1" || isPositiveReply(in.Text) {
		current := ""
		if state.Profile.AppointmentUser != nil {
			current = state.Profile.AppointmentUser.Phone
		}
		if current == "" {
			state.Stage = StageAwaitingUserPhone
			return e.respond(ctx, in, state, "No pude leer tu número automáticamente. Indícame el número de contacto (ejemplo: 3001234567).", nil)
		}
		return e.afterUserField(ctx, in, state, StageAwaitingAppointmentMode, appointmentModeText)
	}
	if in.Text == "2" || isNegativeReply(in.Text) || isAppointmentChangePhoneCommand(in.Text) {
		state.Stage = StageAwaitingUserPhone
		return e.respond(ctx, in, state, "Entendido. Indícame el número de contacto que deseas usar (ejemplo: 3001234567).", nil)
	}

	return e.respond(ctx, in, state, "Responde con una de estas opciones:\n1) Sí, usar este número\n2) No, quiero cambiarlo\n\nTambién puedes escribir directamente el nuevo número (ejemplo: 3001234567).", nil)
}

func (e *Engine) handleUserPhone(ctx context.Context, in Input, state State) (*Result, error) {
	phone := pickPhone(in.Text)
	if phone == "" {
		return e.respond(ctx, in, state, "El número no parece válido. Escríbelo solo con números (ejemplo: 3001234567).", nil)
	}
	state.Profile = state.Profile.withUser(func(u *AppointmentUser) { u.Phone = phone })
	return e.afterUserField(ctx, in, state, StageAwaitingAppointmentMode, appointmentModeText)
}

func (e *Engine) handleAppointmentMode(ctx context.Context, in Input, state State) (*Result, error) {
	if !state.Profile.EditOnly && state.Profile.userData() == nil {
		state.Stage = StageAwaitingUserFullName
		return e.respond(ctx, in, state, restartUserDataText, nil)
	}

	mode := pickAppointmentMode(in.Text)
	if mode == "" {
		return e.respond(ctx, in, state, "No te entendí la modalidad. Escribe: presencial o virtual.", nil)
	}

	state.Profile = state.Profile.withDraft(func(d *AppointmentDraft) { d.Mode = mode })
	state.Stage = StageAwaitingAppointmentDay
	return e.respond(ctx, in, state, fmt.Sprintf("Perfecto, modalidad %s. Ahora indica el día (lunes a viernes).", mode), nil)
}

func (e *Engine) handleAppointmentDay(ctx context.Context, in Input, state State) (*Result, error) {
	day := pickWeekday(in.Text)
	if day == "" {
		if hasWeekendMention(in.Text) {
			return e.respond(ctx, in, state, "Solo tenemos agenda de lunes a viernes. Por favor indica un día entre lunes y viernes.", nil)
		}
		return e.respond(ctx, in, state, "No entendí el día. Por favor indica un día entre lunes y viernes.", nil)
	}

	mode := state.Profile.draftMode()
	if mode == "" {
		state.Stage = StageAwaitingAppointmentMode
		return e.respond(ctx, in, state, appointmentModeText, nil)
	}

	state.Profile = state.Profile.withDraft(func(d *AppointmentDraft) { d.Day = day })

	hours, err := e.scheduler.Availability(ctx, day, mode)
	if err != nil {
		e.logger.Warn("availability lookup failed",
			"conversation_id", in.ConversationID,
			"error", err.Error())
		state.Profile.AvailableHours = nil
		state.Stage = StageAwaitingAppointmentTime
		return e.respond(ctx, in, state, appointmentHourHint(mode)+" Indica la hora de tu cita.", nil)
	}
	if len(hours) == 0 {
		return e.respond(ctx, in, state,
			fmt.Sprintf("No hay espacios disponibles para %s en modalidad %s. Indica otro día entre lunes y viernes.", formatWeekday(day), mode), nil)
	}

	state.Profile.AvailableHours = hours
	state.Stage = StageAwaitingAppointmentTime
	return e.respond(ctx, in, state, buildAvailableHoursText(mode, hours)+" Indica la hora de tu cita.", nil)
}

func (e *Engine) handleAppointmentTime(ctx context.Context, in Input, state State) (*Result, error) {
	editOnly := state.Profile.EditOnly
	if !editOnly && state.Profile.userData() == nil {
		state.Stage = StageAwaitingUserFullName
		return e.respond(ctx, in, state, restartUserDataText, nil)
	}

	mode := state.Profile.draftMode()
	if mode == "" {
		state.Stage = StageAwaitingAppointmentMode
		return e.respond(ctx, in, state, appointmentModeText, nil)
	}
	day := state.Profile.draftDay()
	if day == "" {
		state.Stage = StageAwaitingAppointmentDay
		return e.respond(ctx, in, state, "Indícame el día (lunes a viernes).", nil)
	}

	hour := pickHour24(in.Text)
	if hour < 0 {
		return e.respond(ctx, in, state, appointmentHourHint(mode)+" Escribe la hora en formato como 8am, 3pm o 15:00.", nil)
	}

	// The slot already held by the appointment being rescheduled is always
	// selectable even though availability no longer lists it.
	sameSlot := false
	if editOnly && state.Profile.RescheduleSelectedIdx != nil {
		idx := *state.Profile.RescheduleSelectedIdx
		candidates := state.Profile.RescheduleCandidates
		if idx >= 0 && idx < len(candidates) {
			current := candidates[idx]
			sameSlot = current.CitaID != "" && current.Day == day && current.Mode == mode && current.Hour24 == hour
		}
	}

	if !isHourAllowedByMode(mode, hour) {
		return e.respond(ctx, in, state,
			fmt.Sprintf("La hora no está disponible para modalidad %s. %s", mode, appointmentHourHint(mode)), nil)
	}

	hours, err := e.scheduler.Availability(ctx, day, mode)
	if err == nil && !containsHour(hours, hour) && !sameSlot {
		return e.respond(ctx, in, state,
			fmt.Sprintf("Ese horario ya fue ocupado. %s Indica otra hora.", buildAvailableHoursText(mode, hours)), nil)
	}

	state.Profile = state.Profile.withDraft(func(d *AppointmentDraft) { d.Hour24 = intPtr(hour) })
	state.Stage = StageAwaitingAppointmentOK

	schedule := AppointmentSchedule{Mode: mode, Day: day, Hour24: hour}
	if editOnly {
		return e.respond(ctx, in, state, buildAppointmentEditConfirmationText(schedule), nil)
	}
	user := state.Profile.userData()
	if user == nil {
		state.Stage = StageAwaitingUserFullName
		return e.respond(ctx, in, state, restartUserDataText, nil)
	}
	return e.respond(ctx, in, state, buildAppointmentConfirmationText(*user, schedule), nil)
}

// handleAppointmentConfirm processes the confirmation summary stage: field
// changes, availability questions, aborts and the final booking call.
func (e *Engine) handleAppointmentConfirm(ctx context.Context, in Input, state State) (*Result, error) {
	editOnly := state.Profile.EditOnly

	if Normalize(in.Text) == "cancelar" {
		state.Profile = state.Profile.clearSchedulingScratch()
		state.Profile.CancelCandidates = nil
		state.Profile.CancelSelectedIdx = nil
		state.Stage = StageAwaitingQuestion
		return e.respond(ctx, in, state, "Listo, cancelé el proceso de agendamiento. "+followupHintText, nil)
	}

	if result, handled, err := e.handleConfirmFieldChange(ctx, in, &state, editOnly); handled {
		return result, err
	}

	if isAppointmentAvailabilityQuestion(in.Text) {
		return e.handleConfirmAvailabilityQuestion(ctx, in, state)
	}

	if isAppointmentConfirmCommand(in.Text) {
		return e.handleConfirmBooking(ctx, in, state, editOnly)
	}

	if editOnly {
		return e.respond(ctx, in, state, "Si deseas continuar, escribe: confirmar cita. Si quieres cambiar la cita escribe: cambiar modalidad, cambiar dia o cambiar hora.", nil)
	}
	return e.respond(ctx, in, state, "Si deseas continuar, escribe: confirmar cita. Si quieres cambiar algún dato escribe por ejemplo: cambiar nombre, cambiar tipo de documento, cambiar número de documento, cambiar correo, cambiar número, cambiar modalidad, cambiar dia o cambiar hora.", nil)
}

const editOnlyFieldsText = "En reprogramación solo puedes cambiar modalidad, día u hora. Escribe: cambiar modalidad, cambiar dia o cambiar hora."

func (e *Engine) handleConfirmFieldChange(ctx context.Context, in Input, state *State, editOnly bool) (*Result, bool, error) {
	type fieldRoute struct {
		matches  func(string) bool
		userData bool
		stage    Stage
		prompt   string
	}
	routes := []fieldRoute{
		{isAppointmentChangeFullNameCommand, true, StageAwaitingUserFullName, "Perfecto, indícame el nombre completo actualizado."},
		{isAppointmentChangeDocTypeCommand, true, StageAwaitingUserDocType, appointmentDocTypeText},
		{isAppointmentChangeDocNumberCommand, true, StageAwaitingUserDocNumber, "Perfecto, escribe el nuevo número de documento."},
		{isAppointmentChangeEmailCommand, true, StageAwaitingUserEmail, "Perfecto, escribe el correo actualizado."},
		{isAppointmentChangePhoneCommand, true, StageAwaitingUserPhone, "Perfecto, indícame el número de contacto actualizado."},
		{isAppointmentChangeModeCommand, false, StageAwaitingAppointmentMode, "Perfecto, ¿la cita sería presencial o virtual?"},
		{isAppointmentChangeDayCommand, false, StageAwaitingAppointmentDay, "Perfecto, indícame el nuevo día (lunes a viernes)."},
		{isAppointmentChangeHourCommand, false, StageAwaitingAppointmentTime, "Perfecto, indícame la nueva hora. " + appointmentHourHint(state.Profile.draftMode())},
	}

	for _, route := range routes {
		if !route.matches(in.Text) {
			continue
		}
		if route.userData && editOnly {
			result, err := e.respond(ctx, in, *state, editOnlyFieldsText, nil)
			return result, true, err
		}
		if route.userData {
			state.Profile.ReturnToConfirm = true
		}
		state.Stage = route.stage
		result, err := e.respond(ctx, in, *state, route.prompt, nil)
		return result, true, err
	}
	return nil, false, nil
}

func (e *Engine) handleConfirmAvailabilityQuestion(ctx context.Context, in Input, state State) (*Result, error) {
	mode := state.Profile.draftMode()
	if mode == "" {
		state.Stage = StageAwaitingAppointmentMode
		return e.respond(ctx, in, state, appointmentModeText, nil)
	}
	day := state.Profile.draftDay()
	if day == "" {
		state.Stage = StageAwaitingAppointmentDay
		return e.respond(ctx, in, state, "Indícame el día (lunes a viernes) para consultar la disponibilidad.", nil)
	}

	hours, err := e.scheduler.Availability(ctx, day, mode)
	if err != nil {
		return e.respond(ctx, in, state, "No pude consultar la disponibilidad en este momento. Escribe \"cambiar día\" y vuelve a intentarlo en unos segundos.", nil)
	}
	if len(hours) == 0 {
		state.Stage = StageAwaitingAppointmentDay
		return e.respond(ctx, in, state,
			fmt.Sprintf("No quedan cupos para %s en modalidad %s. Indícame otro día entre lunes y viernes.", formatWeekday(day), mode), nil)
	}

	state.Profile.AvailableHours = hours
	state.Stage = StageAwaitingAppointmentTime
	return e.respond(ctx, in, state, buildAvailableHoursText(mode, hours)+" Indica la hora de tu cita.", nil)
}

func (e *Engine) handleConfirmBooking(ctx context.Context, in Input, state State, editOnly bool) (*Result, error) {
	schedule := state.Profile.scheduleData()
	user := state.Profile.userData()

	if schedule == nil || (!editOnly && user == nil) {
		if editOnly {
			state.Stage = StageAwaitingAppointmentDay
			return e.respond(ctx, in, state, restartRescheduleText, nil)
		}
		state.Stage = StageAwaitingUserFullName
		return e.respond(ctx, in, state, restartUserDataText, nil)
	}

	if editOnly {
		return e.finishReschedule(ctx, in, state, *schedule)
	}
	return e.finishBooking(ctx, in, state, *schedule, *user)
}

func (e *Engine) finishBooking(ctx context.Context, in Input, state State, schedule AppointmentSchedule, user AppointmentUser) (*Result, error) {
	result, err := e.scheduler.Schedule(ctx, ScheduleRequest{
		Day:            schedule.Day,
		Mode:           schedule.Mode,
		Hour24:         schedule.Hour24,
		ConversationID: in.ConversationID,
		Reason:         bookingReason,
		User:           user,
	})
	if err != nil {
		return e.respond(ctx, in, state,
			fmt.Sprintf("No pude completar el agendamiento en este momento (%s). Intenta nuevamente en unos segundos.", err.Error()), nil)
	}

	switch result.Status {
	case ScheduleNoEligibleStudents:
		state.Stage = StageAwaitingAppointmentDay
		return e.respond(ctx, in, state, "Por ahora no hay estudiantes disponibles para esa modalidad. Indica otro día o cambia modalidad para continuar con el agendamiento.", nil)
	case ScheduleSlotUnavailable:
		return e.rerouteAfterSlotLost(ctx, in, state, schedule)
	}

	stored := StoredAppointment{
		Mode:                 schedule.Mode,
		Day:                  schedule.Day,
		Hour24:               schedule.Hour24,
		Status:               AppointmentScheduled,
		UpdatedAt:            e.now().UTC().Format(time.RFC3339),
		CitaID:               result.CitaID,
		AssignedStudentName:  result.StudentName,
		AssignedStudentEmail: result.StudentEmail,
		User:                 &user,
	}
	state.Profile = state.Profile.clearSchedulingScratch().pushAppointment(stored)
	state.Stage = StageAwaitingSurveyRating

	text := buildAppointmentScheduledFriendlyText(schedule)
	if result.StudentName != "" {
		text += fmt.Sprintf("\n👩‍⚖️ Tu cita fue asignada a: *%s*.", result.StudentName)
	}
	text += "\n\n" + surveyRatingText
	return e.respond(ctx, in, state, text, map[string]any{"appointmentFlow": "scheduled", "surveyFlow": "rating"})
}

func (e *Engine) finishReschedule(ctx context.Context, in Input, state State, schedule AppointmentSchedule) (*Result, error) {
	list := state.Profile.storedAppointments()
	idx := -1
	if state.Profile.RescheduleSelectedIdx != nil {
		idx = *state.Profile.RescheduleSelectedIdx
	}
	if idx < 0 || idx >= len(list) {
		state.Profile = state.Profile.clearSchedulingScratch()
		state.Stage = StageAwaitingQuestion
		return e.respond(ctx, in, state, "No pude identificar la cita a reprogramar. Escribe: reprogramar cita para elegirla de nuevo.", nil)
	}
	previous := list[idx]

	if previous.CitaID != "" {
		result, err := e.scheduler.Reschedule(ctx, previous.CitaID, schedule.Day, schedule.Hour24)
		if err != nil {
			return e.respond(ctx, in, state,
				fmt.Sprintf("No fue posible reprogramar la cita en este momento (%s). Intenta nuevamente en unos segundos.", err.Error()), nil)
		}
		if result.Status == ScheduleSlotUnavailable {
			return e.rerouteAfterSlotLost(ctx, in, state, schedule)
		}
	}

	updated := previous
	updated.Mode = schedule.Mode
	updated.Day = schedule.Day
	updated.Hour24 = schedule.Hour24
	updated.Status = AppointmentScheduled
	updated.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	next := append([]StoredAppointment(nil), list...)
	next[idx] = updated

	state.Profile = state.Profile.clearSchedulingScratch().saveAppointmentList(next)
	state.Stage = StageAwaitingQuestion
	text := fmt.Sprintf("✅ Tu cita fue reprogramada con éxito.\n\n📅 %s\n⏰ %s\n📍 Modalidad %s\n\n%s",
		formatWeekday(schedule.Day), formatHour(schedule.Hour24), schedule.Mode, followupHintText)
	return e.respond(ctx, in, state, text, map[string]any{"appointmentFlow": "rescheduled"})
}

// rerouteAfterSlotLost handles a booking rejected because the slot was taken
// between selection and confirmation.
func (e *Engine) rerouteAfterSlotLost(ctx context.Context, in Input, state State, schedule AppointmentSchedule) (*Result, error) {
	hours, err := e.scheduler.Availability(ctx, schedule.Day, schedule.Mode)
	if err != nil {
		state.Stage = StageAwaitingAppointmentTime
		return e.respond(ctx, in, state, "Ese horario ya no está disponible y no pude confirmar la disponibilidad real. Indica otra hora para intentar de nuevo.", nil)
	}
	if len(hours) == 0 {
		state.Stage = StageAwaitingAppointmentDay
		return e.respond(ctx, in, state, "Ese horario ya no está disponible y no quedan cupos para ese día. Indícame otro día entre lunes y viernes.", nil)
	}
	state.Profile.AvailableHours = hours
	state.Stage = StageAwaitingAppointmentTime
	return e.respond(ctx, in, state,
		fmt.Sprintf("Ese horario ya no está disponible. %s Indica una de esas horas.", buildAvailableHoursText(schedule.Mode, hours)), nil)
}
