package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofialabs/legalaid-ai-platform/internal/conversation"
	"github.com/sofialabs/legalaid-ai-platform/internal/convservice"
)

// stubScheduler satisfies the engine's scheduling dependency; the service
// tests never reach a booking call.
type stubScheduler struct{}

func (stubScheduler) Availability(ctx context.Context, day conversation.Weekday, mode conversation.Mode) ([]int, error) {
	return []int{8, 9}, nil
}

func (stubScheduler) Schedule(ctx context.Context, req conversation.ScheduleRequest) (*conversation.ScheduleResult, error) {
	return &conversation.ScheduleResult{Status: conversation.ScheduleOK, CitaID: "cita-1"}, nil
}

func (stubScheduler) Reschedule(ctx context.Context, citaID string, day conversation.Weekday, hour24 int) (*conversation.ScheduleResult, error) {
	return &conversation.ScheduleResult{Status: conversation.ScheduleOK, CitaID: citaID}, nil
}

func (stubScheduler) Cancel(ctx context.Context, citaID string) error { return nil }

func (stubScheduler) SubmitSurvey(ctx context.Context, rating int, comment *string) error {
	return nil
}

// convServiceMock fakes the conversation service HTTP API and records what
// the orchestrator sends it.
type convServiceMock struct {
	server        *httptest.Server
	latestContext string

	messages      []map[string]any
	patches       []map[string]any
	notifications []map[string]any
}

func newConvServiceMock(t *testing.T) *convServiceMock {
	t.Helper()
	m := &convServiceMock{latestContext: "null"}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/contacts/upsert", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"contact-1","tenantId":"cj","channel":"WHATSAPP","externalId":"573001234567"}}`))
	})
	mux.HandleFunc("/v1/conversations/get-or-create", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"conv-1","tenantId":"cj","contactId":"contact-1","channel":"WHATSAPP"}}`))
	})
	mux.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		m.messages = append(m.messages, body)
		w.Write([]byte(`{"data":{"id":"msg-1","conversationId":"conv-1","direction":"IN","type":"TEXT"}}`))
	})
	mux.HandleFunc("/v1/conversations/conv-1/context/latest", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":` + m.latestContext + `}`))
	})
	mux.HandleFunc("/v1/conversations/conv-1/context", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		m.patches = append(m.patches, body)
		w.Write([]byte(`{"data":{"ok":true}}`))
	})
	mux.HandleFunc("/v1/notifications", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		m.notifications = append(m.notifications, body)
		w.Write([]byte(`{"data":{"id":"notif-1"}}`))
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func newTestService(t *testing.T, mock *convServiceMock, flowMode string) *Service {
	t.Helper()
	engine := conversation.NewEngine(
		conversation.NewMemoryStateStore(time.Hour), nil, stubScheduler{}, false, nil)
	return NewService(ServiceConfig{
		Engine:        engine,
		ConvService:   convservice.NewClient(convservice.Options{BaseURL: mock.server.URL}),
		DefaultTenant: "cj",
		FlowMode:      flowMode,
	})
}

func inbound(text string) MessageIn {
	return MessageIn{
		Channel:        "whatsapp",
		ExternalUserID: "573001234567",
		DisplayName:    "Ana",
		Text:           text,
	}
}

func TestHandleMessageStatefulPipeline(t *testing.T) {
	mock := newConvServiceMock(t)
	service := newTestService(t, mock, FlowModeStateful)

	result, err := service.HandleMessage(context.Background(), inbound("hola"), "corr-1")
	require.NoError(t, err)

	assert.Equal(t, "conv-1", result.ConversationID)
	assert.Equal(t, "contact-1", result.ContactID)
	assert.Equal(t, "corr-1", result.CorrelationID)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, "text", result.Responses[0].Type)
	assert.NotEmpty(t, result.Responses[0].Text)

	// Inbound and outbound messages were both persisted.
	require.Len(t, mock.messages, 2)
	assert.Equal(t, "IN", mock.messages[0]["direction"])
	assert.Equal(t, "hola", mock.messages[0]["text"])
	assert.Equal(t, "OUT", mock.messages[1]["direction"])

	outPayload, ok := mock.messages[1]["payload"].(map[string]any)
	require.True(t, ok)
	debug, ok := outPayload["debug"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "corr-1", debug["correlationId"])
	assert.Equal(t, FlowModeStateful, debug["flowMode"])
	assert.Equal(t, "stateful", outPayload["flow"])

	// The flow outcome was patched into the context.
	require.Len(t, mock.patches, 1)
	patch, ok := mock.patches[0]["patch"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "general", patch["intent"])
	assert.Equal(t, "ask_intent", patch["step"])
}

func TestHandleMessageGeneratesCorrelationID(t *testing.T) {
	mock := newConvServiceMock(t)
	service := newTestService(t, mock, FlowModeStateful)

	result, err := service.HandleMessage(context.Background(), inbound("hola"), "")
	require.NoError(t, err)
	assert.NotEmpty(t, result.CorrelationID)
}

func TestHandleMessageSupportNotification(t *testing.T) {
	mock := newConvServiceMock(t)
	service := newTestService(t, mock, FlowModeStateful)
	ctx := context.Background()

	for _, text := range []string{"hola", "si, acepto", "2"} {
		_, err := service.HandleMessage(ctx, inbound(text), "")
		require.NoError(t, err)
	}
	assert.Empty(t, mock.notifications)

	_, err := service.HandleMessage(ctx, inbound("La app no me deja entrar"), "")
	require.NoError(t, err)

	require.Len(t, mock.notifications, 1)
	assert.Equal(t, "soporte", mock.notifications[0]["tipo"])
	assert.Equal(t, "La app no me deja entrar", mock.notifications[0]["mensaje"])
}

func TestHandleMessageLegacyFlow(t *testing.T) {
	mock := newConvServiceMock(t)
	mock.latestContext = `{"intent":"consulta_laboral","step":"ask_city"}`
	service := newTestService(t, mock, FlowModeLegacy)

	result, err := service.HandleMessage(context.Background(), MessageIn{
		Channel:        "whatsapp",
		ExternalUserID: "573001234567",
		Text:           "Bogotá",
	}, "corr-2")
	require.NoError(t, err)

	require.Len(t, result.Responses, 1)
	assert.Equal(t, "Gracias. ¿Cuál es tu edad?", result.Responses[0].Text)

	require.Len(t, mock.patches, 1)
	patch, ok := mock.patches[0]["patch"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "consulta_laboral", patch["intent"])
	assert.Equal(t, "ask_age", patch["step"])
	profile, ok := patch["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Bogotá", profile["city"])
}

func TestHandleMessageLegacyNormalizesOldIntent(t *testing.T) {
	mock := newConvServiceMock(t)
	mock.latestContext = `{"intent":"consulta_juridica","step":"ask_city"}`
	service := newTestService(t, mock, FlowModeLegacy)

	result, err := service.HandleMessage(context.Background(), inbound("Medellín"), "")
	require.NoError(t, err)
	assert.Equal(t, "Gracias. ¿Cuál es tu edad?", result.Responses[0].Text)
}
