package conversation

import "context"

// handlePolicyConsent is the entry gate: nothing else happens until the user
// authorizes the data treatment policy.
func (e *Engine) handlePolicyConsent(ctx context.Context, in Input, state State) (*Result, error) {
	if isPolicyAccepted(in.Text) {
		state.Profile.PolicyAccepted = true
		state.Stage = StageAwaitingCategory
		return e.respond(ctx, in, state, menuText, map[string]any{"consent": "accepted"})
	}
	if isPolicyRejected(in.Text) {
		return e.closeConversation(ctx, in, Profile{PolicyAccepted: false}, dataPolicyRejectedText, map[string]any{"consent": "rejected"})
	}

	// Returning users that already consented in a previous session go
	// straight to the menu flow.
	if state.Profile.PolicyAccepted {
		state.Stage = StageAwaitingCategory
		return e.handleCategory(ctx, in, state)
	}

	state.Profile.PolicyAccepted = false
	return e.respond(ctx, in, state, dataPolicyTextFor(in.Channel), nil)
}

// handleCategory routes the first real message: menu picks, appointment
// management commands, or a free-text legal query typed directly.
func (e *Engine) handleCategory(ctx context.Context, in Input, state State) (*Result, error) {
	if isGreeting(in.Text) {
		return e.respond(ctx, in, state, menuText, nil)
	}

	if isAppointmentCancelCommand(in.Text) {
		return e.startCancelFlow(ctx, in, state)
	}
	if isAppointmentRescheduleCommand(in.Text) {
		return e.startRescheduleFlow(ctx, in, state)
	}

	if isLaboralSelection(in.Text) {
		state.Category = CategoryLaboral
		state.Profile = state.Profile.markConsultationAsActive()
		state.Stage = StageAwaitingQuestion
		return e.respond(ctx, in, state, "Perfecto. Escribe tu consulta laboral.", map[string]any{"category": string(CategoryLaboral)})
	}
	if isAppointmentSelection(in.Text) {
		state.Profile = state.Profile.markConsultationAsActive()
		state.Stage = StageAwaitingUserFullName
		return e.respond(ctx, in, state, appointmentUserDataStartText, map[string]any{"appointmentFlow": "started"})
	}
	if isSoporteSelection(in.Text) {
		state.Category = CategorySoporte
		state.Stage = StageSupport
		return e.respond(ctx, in, state, "Perfecto. Describe tu problema de soporte para ayudarte.", map[string]any{"category": string(CategorySoporte)})
	}

	query := in.RawText
	if query == "" {
		query = in.Text
	}
	if Normalize(query) == "" {
		return e.respond(ctx, in, state, menuText, nil)
	}

	// Free text typed straight at the menu. Without a recognizable case
	// type we ask for one before burning a knowledge-base round trip.
	inferred := inferCaseTypeLabel(query)
	if !hasLaborEvidence(query) && inferred == "" {
		state.Profile.PendingClarify = query
		return e.respond(ctx, in, state,
			"Para orientarte mejor, indícame primero el tipo de caso (laboral, familia, penal, civil, etc.) y un breve resumen en texto de lo ocurrido.",
			nil)
	}

	if state.Profile.PendingClarify != "" {
		query = state.Profile.PendingClarify + "\n" + query
		state.Profile.PendingClarify = ""
	}

	preferred := state.Profile.PendingCaseType
	if preferred == "" {
		preferred = inferred
	}
	resolution := e.resolveLaboralQuery(ctx, in, query, preferred)

	state.Category = CategoryLaboral
	state.Stage = StageAwaitingQuestion
	state.Profile = state.Profile.markConsultationAsActive()
	state.Profile.LastLaboralQuery = query
	state.Profile.LastRagNoSupport = resolution.noSupport
	if resolution.noSupport {
		state.Profile.PendingCaseType = resolution.caseType
	} else {
		state.Profile.PendingCaseType = ""
	}

	payload := resolution.payload
	if payload == nil {
		payload = map[string]any{}
	}
	payload["directCaseEntry"] = true
	return e.respond(ctx, in, state, resolution.text, payload)
}
