package conversation

import (
	"context"
	"fmt"
	"time"
)

// startCancelFlow lists the active appointments and asks which one to cancel.
func (e *Engine) startCancelFlow(ctx context.Context, in Input, state State) (*Result, error) {
	active := state.Profile.activeAppointments()
	if len(active) == 0 {
		return e.respond(ctx, in, state, "No encuentro una cita agendada para cancelar. Si quieres, puedo ayudarte a agendar una nueva cita.", nil)
	}

	state.Profile.CancelCandidates = active
	state.Profile.CancelSelectedIdx = nil
	state.Stage = StageAwaitingCancelPick
	return e.respond(ctx, in, state,
		buildAppointmentListText(active)+"\n\nEscribe el número de la cita que deseas cancelar.",
		map[string]any{"appointmentFlow": "cancel"})
}

// startRescheduleFlow lists the active appointments and asks which one to move.
func (e *Engine) startRescheduleFlow(ctx context.Context, in Input, state State) (*Result, error) {
	active := state.Profile.activeAppointments()
	if len(active) == 0 {
		return e.respond(ctx, in, state, "No encuentro una cita previa para reprogramar. Si deseas, puedo ayudarte a agendar una nueva cita.", nil)
	}

	state.Profile.RescheduleCandidates = active
	state.Profile.RescheduleSelectedIdx = nil
	state.Stage = StageAwaitingReschedulePick
	return e.respond(ctx, in, state,
		buildAppointmentListText(active)+"\n\nEscribe el número de la cita que deseas reprogramar.",
		map[string]any{"appointmentFlow": "reschedule"})
}

func (e *Engine) handleReschedulePick(ctx context.Context, in Input, state State) (*Result, error) {
	candidates := make([]StoredAppointment, 0, len(state.Profile.RescheduleCandidates))
	for _, item := range state.Profile.RescheduleCandidates {
		if item.valid() {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		state.Profile = state.Profile.clearSchedulingScratch()
		state.Stage = StageAwaitingQuestion
		return e.respond(ctx, in, state, "No encontré citas para reprogramar en este momento. Si deseas, agenda una nueva cita.", nil)
	}

	pick := pickOptionNumber(in.Text)
	if pick < 1 || pick > len(candidates) {
		return e.respond(ctx, in, state,
			buildAppointmentListText(candidates)+"\n\nNo entendí tu selección. Escribe solo el número de la cita (ejemplo: 1).", nil)
	}

	selected := candidates[pick-1]
	state.Profile = state.Profile.withDraft(func(d *AppointmentDraft) {
		d.Mode = selected.Mode
		d.Day = selected.Day
		d.Hour24 = intPtr(selected.Hour24)
	})
	state.Profile.RescheduleCandidates = candidates
	state.Profile.RescheduleSelectedIdx = intPtr(pick - 1)
	state.Profile.EditOnly = true
	state.Stage = StageAwaitingRescheduleField
	text := fmt.Sprintf("Seleccionaste la cita #%d: %s - %s - %s.\n\n¿Qué dato deseas cambiar?\n1) modalidad\n2) dia\n3) hora",
		pick, formatWeekday(selected.Day), formatHour(selected.Hour24), selected.Mode)
	return e.respond(ctx, in, state, text, nil)
}

func (e *Engine) handleRescheduleField(ctx context.Context, in Input, state State) (*Result, error) {
	if !state.Profile.EditOnly {
		state.Stage = StageAwaitingQuestion
		return e.respond(ctx, in, state, "Reiniciemos la reprogramación. Escribe: reprogramar cita.", nil)
	}

	switch pickRescheduleField(in.Text) {
	case fieldModalidad:
		state.Stage = StageAwaitingAppointmentMode
		return e.respond(ctx, in, state, "Perfecto, ¿la cita sería presencial o virtual?", nil)
	case fieldDia:
		state.Stage = StageAwaitingAppointmentDay
		return e.respond(ctx, in, state, "Perfecto, indícame el nuevo día (lunes a viernes).", nil)
	case fieldHora:
		mode := state.Profile.draftMode()
		if mode == "" {
			mode = ModeVirtual
		}
		state.Stage = StageAwaitingAppointmentTime
		return e.respond(ctx, in, state, "Perfecto, indícame la nueva hora. "+appointmentHourHint(mode), nil)
	}
	return e.respond(ctx, in, state, "Indícame qué deseas cambiar escribiendo una opción: 1) modalidad, 2) dia, 3) hora.", nil)
}

func (e *Engine) handleCancelPick(ctx context.Context, in Input, state State) (*Result, error) {
	candidates := make([]StoredAppointment, 0, len(state.Profile.CancelCandidates))
	for _, item := range state.Profile.CancelCandidates {
		if item.valid() {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		state.Profile.CancelCandidates = nil
		state.Profile.CancelSelectedIdx = nil
		state.Stage = StageAwaitingQuestion
		return e.respond(ctx, in, state, "No encontré citas para cancelar en este momento. Si deseas, agenda una nueva cita.", nil)
	}

	pick := pickOptionNumber(in.Text)
	if pick < 1 || pick > len(candidates) {
		return e.respond(ctx, in, state,
			buildAppointmentListText(candidates)+"\n\nNo entendí tu selección. Escribe solo el número de la cita (ejemplo: 1).", nil)
	}

	selected := candidates[pick-1]
	state.Profile.CancelCandidates = candidates
	state.Profile.CancelSelectedIdx = intPtr(pick - 1)
	state.Stage = StageAwaitingCancelConfirm
	schedule := AppointmentSchedule{Mode: selected.Mode, Day: selected.Day, Hour24: selected.Hour24}
	return e.respond(ctx, in, state, buildAppointmentCancelConfirmationText(schedule), nil)
}

func (e *Engine) handleCancelConfirm(ctx context.Context, in Input, state State) (*Result, error) {
	idx := -1
	if state.Profile.CancelSelectedIdx != nil {
		idx = *state.Profile.CancelSelectedIdx
	}
	if idx < 0 || idx >= len(state.Profile.CancelCandidates) {
		state.Profile.CancelSelectedIdx = nil
		state.Stage = StageAwaitingCancelPick
		return e.respond(ctx, in, state, "No pude identificar la cita a cancelar. Volvamos a elegirla por número.", nil)
	}

	if !isAppointmentCancelCommand(in.Text) {
		return e.respond(ctx, in, state, "Para cancelar esa cita escribe: cancelar cita. Si cambias de idea, escribe reset.", nil)
	}

	selected := state.Profile.CancelCandidates[idx]
	if selected.CitaID != "" {
		if err := e.scheduler.Cancel(ctx, selected.CitaID); err != nil {
			e.logger.Warn("appointment cancel failed",
				"conversation_id", in.ConversationID,
				"cita_id", selected.CitaID,
				"error", err.Error())
			return e.respond(ctx, in, state, "No fue posible cancelar esa cita en este momento. Intenta nuevamente en unos segundos.", nil)
		}
	}

	cancelled := selected
	cancelled.Status = AppointmentCancelled
	cancelled.UpdatedAt = e.now().UTC().Format(time.RFC3339)

	list := state.Profile.storedAppointments()
	for i, item := range list {
		if item.CitaID != "" && item.CitaID == selected.CitaID {
			list[i] = cancelled
			break
		}
		if item.CitaID == "" && item.Day == selected.Day && item.Hour24 == selected.Hour24 && item.Mode == selected.Mode && item.Status == selected.Status {
			list[i] = cancelled
			break
		}
	}

	state.Profile = state.Profile.saveAppointmentList(list)
	state.Profile.CancelCandidates = nil
	state.Profile.CancelSelectedIdx = nil
	state.Stage = StageAwaitingQuestion
	text := fmt.Sprintf("✅ Tu cita fue cancelada con éxito.\n\n📅 %s\n⏰ %s\n📍 Modalidad %s\n\n%s",
		formatWeekday(selected.Day), formatHour(selected.Hour24), selected.Mode, followupHintText)
	return e.respond(ctx, in, state, text, map[string]any{"appointmentFlow": "cancelled"})
}
