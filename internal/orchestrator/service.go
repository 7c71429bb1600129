package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sofialabs/legalaid-ai-platform/internal/conversation"
	"github.com/sofialabs/legalaid-ai-platform/internal/convservice"
	"github.com/sofialabs/legalaid-ai-platform/internal/observability/metrics"
	"github.com/sofialabs/legalaid-ai-platform/pkg/logging"
)

// FlowModeStateful runs the full conversation engine; FlowModeLegacy runs
// the original questionnaire flow.
const (
	FlowModeStateful = "stateful"
	FlowModeLegacy   = "legacy"
)

// Service ties the conversation-service persistence to the flow engine.
type Service struct {
	engine        *conversation.Engine
	conv          *convservice.Client
	defaultTenant string
	flowMode      string
	logger        *logging.Logger
	metrics       *metrics.OrchestratorMetrics
}

// ServiceConfig wires a Service. Engine and ConvService are required.
type ServiceConfig struct {
	Engine        *conversation.Engine
	ConvService   *convservice.Client
	DefaultTenant string
	FlowMode      string
	Logger        *logging.Logger
	Metrics       *metrics.OrchestratorMetrics
}

// NewService creates the message orchestration service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	flowMode := strings.ToLower(strings.TrimSpace(cfg.FlowMode))
	if flowMode != FlowModeLegacy {
		flowMode = FlowModeStateful
	}
	return &Service{
		engine:        cfg.Engine,
		conv:          cfg.ConvService,
		defaultTenant: cfg.DefaultTenant,
		flowMode:      flowMode,
		logger:        logger,
		metrics:       cfg.Metrics,
	}
}

// contextDoc is the slice of the conversation context the orchestrator
// reads back before running the flow.
type contextDoc struct {
	Intent  string                `json:"intent"`
	Step    string                `json:"step"`
	Profile *conversation.Profile `json:"profile"`
}

func normalizeIntent(intent string) string {
	switch intent {
	case "consulta_juridica", "consulta_laboral":
		return "consulta_laboral"
	case "soporte", "general":
		return intent
	}
	return "general"
}

func mapConvChannel(channel string) string {
	switch channel {
	case "whatsapp", "telegram":
		return "WHATSAPP"
	}
	return "WEBCHAT"
}

func mapMessageType(messageType string) string {
	switch strings.ToLower(messageType) {
	case "image":
		return "IMAGE"
	case "audio":
		return "AUDIO"
	case "video":
		return "VIDEO"
	case "document":
		return "DOCUMENT"
	}
	return "TEXT"
}

// HandleMessage runs the whole inbound pipeline: persist the message, load
// context, run the flow, patch context and persist the reply.
func (s *Service) HandleMessage(ctx context.Context, in MessageIn, requestID string) (*HandleResult, error) {
	started := time.Now()

	correlationID := strings.TrimSpace(requestID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	tenantID := strings.TrimSpace(in.TenantID)
	if tenantID == "" {
		tenantID = s.defaultTenant
	}
	channel := strings.ToLower(strings.TrimSpace(in.Channel))

	rawText := in.ExtractRawText()
	text := strings.ToLower(strings.TrimSpace(rawText))

	conv := s.conv.WithRequestID(correlationID)

	contact, err := conv.UpsertContact(ctx, tenantID, mapConvChannel(channel), in.ExternalUserID, in.DisplayName)
	if err != nil {
		s.metrics.ObserveInbound(channel, "error")
		return nil, fmt.Errorf("orchestrator: contact resolution failed: %w", err)
	}

	convo, err := conv.GetOrCreateConversation(ctx, tenantID, contact.ID, mapConvChannel(channel))
	if err != nil {
		s.metrics.ObserveInbound(channel, "error")
		return nil, fmt.Errorf("orchestrator: conversation resolution failed: %w", err)
	}

	inPayload := map[string]any{
		"extractedText":    text,
		"extractedRawText": rawText,
	}
	if in.Message != nil {
		for k, v := range in.Message.Payload {
			inPayload[k] = v
		}
	}
	messageType := "TEXT"
	providerMessageID := ""
	if in.Message != nil {
		messageType = mapMessageType(in.Message.Type)
		providerMessageID = in.Message.ProviderMessageID
	}
	if _, err := conv.CreateMessage(ctx, tenantID, convservice.CreateMessageInput{
		ConversationID:    convo.ID,
		ContactID:         contact.ID,
		Direction:         "IN",
		Type:              messageType,
		Text:              rawText,
		Payload:           inPayload,
		ProviderMessageID: providerMessageID,
	}); err != nil {
		s.logger.Warn("failed to persist inbound message",
			"conversation_id", convo.ID,
			"correlation_id", correlationID,
			"error", err.Error())
	}

	var doc contextDoc
	if raw, err := conv.LatestContext(ctx, tenantID, convo.ID); err != nil {
		s.logger.Warn("failed to load conversation context",
			"conversation_id", convo.ID,
			"correlation_id", correlationID,
			"error", err.Error())
	} else if raw != nil {
		if err := json.Unmarshal(raw, &doc); err != nil {
			s.logger.Warn("failed to parse conversation context",
				"conversation_id", convo.ID,
				"correlation_id", correlationID,
				"error", err.Error())
		}
	}
	intentBefore := normalizeIntent(doc.Intent)
	stepBefore := doc.Step

	var (
		responseText string
		patch        any
		intentAfter  string
		stepAfter    string
		flowPayload  map[string]any
	)

	if s.flowMode == FlowModeLegacy {
		decision := decideNextAction(intentBefore, stepBefore, text, rawText)
		responseText = decision.responseText
		intentAfter = decision.intent
		stepAfter = decision.step
		patchMap := map[string]any{"intent": decision.intent, "step": decision.step}
		if decision.profilePatch != nil {
			patchMap["profile"] = decision.profilePatch
		}
		patch = patchMap
		flowPayload = map[string]any{"flow": FlowModeLegacy}
	} else {
		result, err := s.engine.Handle(ctx, conversation.Input{
			TenantID:       tenantID,
			Channel:        channel,
			ExternalUserID: in.ExternalUserID,
			ConversationID: convo.ID,
			CorrelationID:  correlationID,
			Text:           text,
			RawText:        rawText,
			ContextProfile: doc.Profile,
		})
		if err != nil {
			s.metrics.ObserveInbound(channel, "error")
			return nil, fmt.Errorf("orchestrator: flow failed: %w", err)
		}
		responseText = result.ResponseText
		intentAfter = result.Patch.Intent
		stepAfter = result.Patch.Step
		patch = result.Patch
		flowPayload = result.Payload
	}

	if err := conv.PatchContext(ctx, tenantID, convo.ID, patch); err != nil {
		s.logger.Warn("failed to patch conversation context",
			"conversation_id", convo.ID,
			"correlation_id", correlationID,
			"error", err.Error())
	}

	s.maybeNotifySupport(ctx, conv, tenantID, convo.ID, patch)

	s.logger.Info("flow decision",
		"conversation_id", convo.ID,
		"correlation_id", correlationID,
		"flow_mode", s.flowMode,
		"intent_before", intentBefore,
		"intent_after", intentAfter,
		"step_before", stepBefore,
		"step_after", stepAfter)

	debug := map[string]any{
		"correlationId":    correlationID,
		"extractedText":    text,
		"extractedRawText": rawText,
		"stepBefore":       stepBefore,
		"stepAfter":        stepAfter,
		"intentBefore":     intentBefore,
		"intentAfter":      intentAfter,
		"flowMode":         s.flowMode,
	}
	outPayload := map[string]any{"debug": debug}
	for k, v := range flowPayload {
		outPayload[k] = v
	}

	if _, err := conv.CreateMessage(ctx, tenantID, convservice.CreateMessageInput{
		ConversationID: convo.ID,
		ContactID:      contact.ID,
		Direction:      "OUT",
		Type:           "TEXT",
		Text:           responseText,
		Payload:        outPayload,
	}); err != nil {
		s.logger.Warn("failed to persist outbound message",
			"conversation_id", convo.ID,
			"correlation_id", correlationID,
			"error", err.Error())
	}

	s.metrics.ObserveInbound(channel, "ok")
	s.metrics.ObserveDecision(s.flowMode, stepAfter)
	s.metrics.ObserveFlowLatency(s.flowMode, time.Since(started).Seconds())

	return &HandleResult{
		ConversationID: convo.ID,
		ContactID:      contact.ID,
		CorrelationID:  correlationID,
		Responses: []ResponseItem{
			{Type: "text", Text: responseText, Payload: outPayload},
		},
	}, nil
}

// maybeNotifySupport raises an internal notification when the flow just
// captured a support issue.
func (s *Service) maybeNotifySupport(ctx context.Context, conv *convservice.Client, tenantID, conversationID string, patch any) {
	typed, ok := patch.(conversation.Patch)
	if !ok || typed.Profile == nil || strings.TrimSpace(typed.Profile.Issue) == "" {
		return
	}
	notification := convservice.Notification{
		Tipo:      "soporte",
		Titulo:    "Nuevo caso de soporte desde el chatbot",
		Mensaje:   typed.Profile.Issue,
		Prioridad: "media",
	}
	if err := conv.CreateNotification(ctx, tenantID, notification); err != nil {
		s.logger.Warn("failed to create support notification",
			"conversation_id", conversationID,
			"error", err.Error())
	}
}
