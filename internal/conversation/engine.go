package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/sofialabs/legalaid-ai-platform/pkg/logging"
)

// Input is one inbound user message plus the context the orchestrator
// already resolved for it. Text is the normalized form used for intent
// matching; RawText preserves the user's casing and accents for fields that
// store verbatim content (names, survey comments).
type Input struct {
	TenantID       string
	Channel        string
	ExternalUserID string
	ConversationID string
	CorrelationID  string
	Text           string
	RawText        string
	ContextProfile *Profile
}

func (in Input) stateKey() string {
	return fmt.Sprintf("%s:%s:%s", in.TenantID, in.Channel, in.ExternalUserID)
}

// Patch mirrors the flow outcome into the external conversation context.
type Patch struct {
	Intent  string   `json:"intent,omitempty"`
	Step    string   `json:"step,omitempty"`
	Profile *Profile `json:"profile,omitempty"`
}

// Result is the flow engine's answer for one inbound message.
type Result struct {
	ResponseText string
	Patch        Patch
	Payload      map[string]any
}

// Engine drives the legal-aid conversation flow: consent, area selection,
// preliminary legal orientation, appointment booking and the exit survey.
type Engine struct {
	store      StateStore
	answers    AnswerClient
	scheduler  SchedulingAdapter
	ragEnabled bool
	logger     *logging.Logger
	now        func() time.Time
}

// NewEngine wires the flow engine. answers may be nil when ragEnabled is
// false.
func NewEngine(store StateStore, answers AnswerClient, scheduler SchedulingAdapter, ragEnabled bool, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		store:      store,
		answers:    answers,
		scheduler:  scheduler,
		ragEnabled: ragEnabled,
		logger:     logger,
		now:        time.Now,
	}
}

func intentForCategory(category Category) string {
	switch category {
	case CategoryLaboral:
		return "consulta_laboral"
	case CategorySoporte:
		return "soporte"
	}
	return "general"
}

func stepForStage(stage Stage) string {
	switch stage {
	case StageAwaitingPolicyConsent, StageAwaitingCategory:
		return "ask_intent"
	case StageSupport:
		return "collecting_issue"
	case StageAwaitingQuestion:
		return "ask_issue"
	case StageAwaitingSurveyRating, StageAwaitingSurveyComment:
		return "survey"
	}
	return "scheduling_appointment"
}

// Handle processes one inbound message and returns the reply plus the
// context patch. Reset and conversation-end commands take effect regardless
// of the current stage.
func (e *Engine) Handle(ctx context.Context, in Input) (*Result, error) {
	key := in.stateKey()

	if isResetCommand(in.Text) {
		return e.handleReset(ctx, in, key)
	}

	state, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load flow state: %w", err)
	}
	if state == nil {
		created := defaultState()
		if in.ContextProfile != nil {
			created.Profile = *in.ContextProfile
		}
		state = &created
	} else if merged, changed := state.Profile.hydrateAppointmentsFromContext(in.ContextProfile); changed {
		state.Profile = merged
	}

	if isConversationEndCommand(in.Text) {
		return e.handleConversationEnd(ctx, in, key, *state)
	}

	switch state.Stage {
	case StageAwaitingSurveyRating:
		return e.handleSurveyRating(ctx, in, *state)
	case StageAwaitingSurveyComment:
		return e.handleSurveyComment(ctx, in, *state)
	case StageAwaitingPolicyConsent:
		return e.handlePolicyConsent(ctx, in, *state)
	case StageAwaitingCategory:
		return e.handleCategory(ctx, in, *state)
	case StageAwaitingQuestion:
		return e.handleQuestion(ctx, in, *state)
	case StageSupport:
		return e.handleSupport(ctx, in, *state)
	case StageAwaitingAppointmentOpt:
		return e.handleAppointmentOffer(ctx, in, *state)
	case StageAwaitingUserFullName:
		return e.handleUserFullName(ctx, in, *state)
	case StageAwaitingUserDocType:
		return e.handleUserDocType(ctx, in, *state)
	case StageAwaitingUserDocNumber:
		return e.handleUserDocNumber(ctx, in, *state)
	case StageAwaitingUserEmail:
		return e.handleUserEmail(ctx, in, *state)
	case StageAwaitingUserPhoneConfirm:
		return e.handleUserPhoneConfirm(ctx, in, *state)
	case StageAwaitingUserPhone:
		return e.handleUserPhone(ctx, in, *state)
	case StageAwaitingAppointmentMode:
		return e.handleAppointmentMode(ctx, in, *state)
	case StageAwaitingAppointmentDay:
		return e.handleAppointmentDay(ctx, in, *state)
	case StageAwaitingAppointmentTime:
		return e.handleAppointmentTime(ctx, in, *state)
	case StageAwaitingAppointmentOK:
		return e.handleAppointmentConfirm(ctx, in, *state)
	case StageAwaitingReschedulePick:
		return e.handleReschedulePick(ctx, in, *state)
	case StageAwaitingRescheduleField:
		return e.handleRescheduleField(ctx, in, *state)
	case StageAwaitingCancelPick:
		return e.handleCancelPick(ctx, in, *state)
	case StageAwaitingCancelConfirm:
		return e.handleCancelConfirm(ctx, in, *state)
	}

	// Unknown stage, most likely from an older state shape. Start over at
	// the menu keeping the profile.
	state.Stage = StageAwaitingCategory
	return e.respond(ctx, in, *state, menuText, map[string]any{"fallback": true})
}

func (e *Engine) handleReset(ctx context.Context, in Input, key string) (*Result, error) {
	if err := e.store.Clear(ctx, key); err != nil {
		e.logger.Warn("failed to clear state on reset",
			"conversation_id", in.ConversationID,
			"error", err.Error())
	}
	state := State{Stage: StageAwaitingPolicyConsent, Profile: resetProfile(in.ContextProfile)}
	saved, err := e.store.Set(ctx, key, state)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to persist reset state: %w", err)
	}
	return &Result{
		ResponseText: dataPolicyTextFor(in.Channel),
		Patch: Patch{
			Intent:  "general",
			Step:    "ask_intent",
			Profile: &saved.Profile,
		},
		Payload: e.payload(map[string]any{"reset": true}),
	}, nil
}

func (e *Engine) handleConversationEnd(ctx context.Context, in Input, key string, state State) (*Result, error) {
	alreadyRated := state.Profile.Survey != nil && state.Profile.Survey.Rating >= 1
	profile := state.Profile.markConsultationAsCompleted(e.now())

	if alreadyRated {
		return e.closeConversation(ctx, in, profile, goodbyeText, map[string]any{"ended": true})
	}

	state.Profile = profile
	state.Stage = StageAwaitingSurveyRating
	return e.respond(ctx, in, state, surveyRatingText, map[string]any{"ended": true, "surveyFlow": "rating"})
}

// respond persists the state and builds the result for it.
func (e *Engine) respond(ctx context.Context, in Input, state State, text string, payload map[string]any) (*Result, error) {
	saved, err := e.store.Set(ctx, in.stateKey(), state)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to persist flow state: %w", err)
	}
	return &Result{
		ResponseText: text,
		Patch: Patch{
			Intent:  intentForCategory(saved.Category),
			Step:    stepForStage(saved.Stage),
			Profile: &saved.Profile,
		},
		Payload: e.payload(payload),
	}, nil
}

// closeConversation drops the stored state so the next message starts a
// fresh flow, while still patching the final profile into the context.
func (e *Engine) closeConversation(ctx context.Context, in Input, profile Profile, text string, payload map[string]any) (*Result, error) {
	if err := e.store.Clear(ctx, in.stateKey()); err != nil {
		e.logger.Warn("failed to clear state on close",
			"conversation_id", in.ConversationID,
			"error", err.Error())
	}
	return &Result{
		ResponseText: text,
		Patch: Patch{
			Intent:  "general",
			Step:    "ask_intent",
			Profile: &profile,
		},
		Payload: e.payload(payload),
	}, nil
}

func (e *Engine) payload(extra map[string]any) map[string]any {
	payload := map[string]any{"flow": "stateful"}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
