package conversation

import (
	"context"
	"strings"

	"github.com/sofialabs/legalaid-ai-platform/internal/rag"
)

const ragDisabledText = "El modo de consulta jurídica está desactivado temporalmente. Intenta en unos minutos."

// handleQuestion is the main consultation loop: legal queries go to the
// knowledge base, and appointment commands branch into the booking flows.
func (e *Engine) handleQuestion(ctx context.Context, in Input, state State) (*Result, error) {
	if isAppointmentCancelCommand(in.Text) {
		return e.startCancelFlow(ctx, in, state)
	}
	if isAppointmentRescheduleCommand(in.Text) {
		return e.startRescheduleFlow(ctx, in, state)
	}
	if isScheduleAppointmentRequest(in.Text) {
		state.Profile = state.Profile.markConsultationAsActive()
		state.Stage = StageAwaitingUserFullName
		return e.respond(ctx, in, state, appointmentUserDataStartText, map[string]any{"appointmentFlow": "started"})
	}
	if isNoMoreDoubtsMessage(in.Text) {
		state.Stage = StageAwaitingAppointmentOpt
		return e.respond(ctx, in, state, "Perfecto. "+appointmentOfferText, nil)
	}
	if isAnotherQuestionPrompt(in.Text) {
		return e.respond(ctx, in, state, "Claro, cuéntame tu otra duda y te ayudo. "+followupHintText, nil)
	}

	if !e.ragEnabled {
		return e.respond(ctx, in, state, ragDisabledText, map[string]any{"rag": map[string]any{"status": "disabled"}})
	}

	query := in.RawText
	if query == "" {
		query = in.Text
	}

	// When the previous answer lacked support, the new message is treated
	// as additional detail for the same case rather than a fresh query.
	augmented := false
	if state.Profile.LastRagNoSupport && state.Profile.LastLaboralQuery != "" {
		query = state.Profile.LastLaboralQuery + "\n\nDetalles adicionales del usuario: " + query
		augmented = true
	}

	resolution := e.resolveLaboralQuery(ctx, in, query, state.Profile.PendingCaseType)

	if resolution.noSupport {
		next := inferCaseTypeLabel(in.RawText)
		if next == "" {
			next = state.Profile.PendingCaseType
		}
		if next == "" {
			next = inferCaseTypeLabel(state.Profile.LastLaboralQuery)
		}
		state.Profile.PendingCaseType = next
	} else {
		state.Profile.PendingCaseType = ""
	}
	state.Profile.LastLaboralQuery = query
	state.Profile.LastRagNoSupport = resolution.noSupport

	payload := resolution.payload
	if payload == nil {
		payload = map[string]any{}
	}
	if augmented {
		payload["ragContextAugmented"] = true
	}
	return e.respond(ctx, in, state, resolution.text, payload)
}

// handleSupport records the support issue verbatim for a human follow-up.
func (e *Engine) handleSupport(ctx context.Context, in Input, state State) (*Result, error) {
	issue := in.RawText
	if issue == "" {
		issue = in.Text
	}
	state.Profile = Profile{PolicyAccepted: state.Profile.PolicyAccepted, Issue: issue}
	return e.respond(ctx, in, state,
		"Gracias. Registré tu caso de soporte y te ayudaré con un asesor. Si deseas empezar de nuevo escribe reset.",
		map[string]any{"category": string(CategorySoporte)})
}

type laboralResolution struct {
	text      string
	noSupport bool
	caseType  string
	payload   map[string]any
}

// resolveLaboralQuery turns a legal query into a user-facing orientation,
// consulting the knowledge base unless a quick canned orientation applies.
func (e *Engine) resolveLaboralQuery(ctx context.Context, in Input, query, preferredCaseType string) laboralResolution {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return laboralResolution{
			text:      "Escribe tu consulta laboral para ayudarte mejor.",
			noSupport: true,
		}
	}

	caseType := preferredCaseType
	if caseType == "" {
		caseType = inferCaseTypeLabel(trimmed)
	}

	if shouldUseQuickOrientation(trimmed, caseType) {
		text := rag.Truncate(buildFriendlyOrientationResponse(
			buildGeneralGuidanceByCaseType(caseType),
			buildClarifyingQuestions(caseType)))
		return laboralResolution{
			text:      text,
			noSupport: true,
			caseType:  caseType,
			payload: map[string]any{"rag": map[string]any{
				"status": "skipped_quick_orientation",
				"reason": "short_query_with_detected_case_type",
			}},
		}
	}

	if !e.ragEnabled || e.answers == nil {
		return laboralResolution{text: ragDisabledText, noSupport: true, caseType: caseType}
	}

	answer, err := e.answers.Ask(ctx, trimmed, in.CorrelationID)
	if err != nil {
		e.logger.Warn("rag answer failed",
			"conversation_id", in.ConversationID,
			"correlation_id", in.CorrelationID,
			"error", err.Error())
		text := rag.Truncate(buildFriendlyOrientationResponse(
			buildRagServiceErrorFallback(trimmed, caseType),
			buildClarifyingQuestions(caseType)))
		return laboralResolution{
			text:      text,
			noSupport: true,
			caseType:  caseType,
			payload:   map[string]any{"rag": map[string]any{"status": "error"}},
		}
	}

	kind := rag.PickFallbackKind(answer)
	ragPayload := map[string]any{"status": answer.Status, "fallback": string(kind)}

	switch kind {
	case rag.FallbackNeedsContext:
		text := rag.Truncate(buildFriendlyOrientationResponse(
			buildNeedsContextFallback(caseType),
			buildClarifyingQuestions(caseType)))
		return laboralResolution{text: text, noSupport: true, caseType: caseType, payload: map[string]any{"rag": ragPayload}}
	case rag.FallbackNoContent:
		text := rag.Truncate(buildFriendlyOrientationResponse(buildNoContentFallback(caseType), ""))
		return laboralResolution{text: text, noSupport: true, caseType: caseType, payload: map[string]any{"rag": ragPayload}}
	}

	text, supported := buildRagAnswerText(answer.Text, caseType, trimmed)
	return laboralResolution{
		text:      text,
		noSupport: !supported,
		caseType:  caseType,
		payload:   map[string]any{"rag": ragPayload},
	}
}

// buildRagAnswerText formats a supported knowledge-base answer for delivery.
// Returns false when the answer was replaced with a generic orientation.
func buildRagAnswerText(answerText, caseType, query string) (string, bool) {
	base := rag.Sanitize(answerText)

	if !hasSpecificContextInQuery(query, caseType) {
		return rag.Truncate(buildFriendlyOrientationResponse(
			buildNeedsContextFallback(caseType),
			buildClarifyingQuestions(caseType))), false
	}
	if len([]rune(base)) < 40 {
		return rag.Truncate(buildFriendlyOrientationResponse(buildGeneralGuidanceByCaseType(caseType), "")), false
	}

	body := base
	if caseType != "" {
		body = "Tipo de caso: " + caseType + "\n\n" + base
	}
	return rag.Truncate(buildFriendlyOrientationResponse(body, "")), true
}
