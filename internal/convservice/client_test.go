package convservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{BaseURL: server.URL})
}

func TestUpsertContact(t *testing.T) {
	var gotTenantHeader, gotRequestID string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/contacts/upsert", r.URL.Path)
		gotTenantHeader = r.Header.Get("X-Tenant-Id")
		gotRequestID = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"id":"contact-1","tenantId":"cj","channel":"WHATSAPP","externalId":"573001234567"}}`))
	})

	contact, err := client.WithRequestID("corr-1").UpsertContact(context.Background(), "cj", "WHATSAPP", "573001234567", "Ana")
	require.NoError(t, err)
	assert.Equal(t, "contact-1", contact.ID)
	assert.Equal(t, "cj", gotTenantHeader)
	assert.Equal(t, "corr-1", gotRequestID)
	assert.Equal(t, "Ana", gotBody["displayName"])
}

func TestWithRequestIDDoesNotMutateOriginal(t *testing.T) {
	client := NewClient(Options{BaseURL: "http://localhost:0"})
	scoped := client.WithRequestID("corr-9")
	assert.Empty(t, client.requestID)
	assert.Equal(t, "corr-9", scoped.requestID)
}

func TestGetOrCreateConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/conversations/get-or-create", r.URL.Path)
		w.Write([]byte(`{"data":{"id":"conv-1","tenantId":"cj","contactId":"contact-1","channel":"WHATSAPP"}}`))
	})

	conv, err := client.GetOrCreateConversation(context.Background(), "cj", "contact-1", "WHATSAPP")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", conv.ID)
	assert.Equal(t, "contact-1", conv.ContactID)
}

func TestCreateMessage(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"id":"msg-1","conversationId":"conv-1","direction":"IN","type":"TEXT"}}`))
	})

	message, err := client.CreateMessage(context.Background(), "cj", CreateMessageInput{
		ConversationID: "conv-1",
		ContactID:      "contact-1",
		Direction:      "IN",
		Type:           "TEXT",
		Text:           "hola",
		Payload:        map[string]any{"extractedText": "hola"},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", message.ID)
	assert.Equal(t, "IN", gotBody["direction"])
	payload, ok := gotBody["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hola", payload["extractedText"])
}

func TestLatestContext(t *testing.T) {
	t.Run("returns document", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/conversations/conv-1/context/latest", r.URL.Path)
			require.Equal(t, "cj", r.URL.Query().Get("tenantId"))
			w.Write([]byte(`{"data":{"intent":"consulta_laboral","step":"ask_issue"}}`))
		})

		data, err := client.LatestContext(context.Background(), "cj", "conv-1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"intent":"consulta_laboral","step":"ask_issue"}`, string(data))
	})

	t.Run("nil when absent", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":null}`))
		})

		data, err := client.LatestContext(context.Background(), "cj", "conv-1")
		require.NoError(t, err)
		assert.Nil(t, data)
	})
}

func TestPatchContext(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/conversations/conv-1/context", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"ok":true}}`))
	})

	err := client.PatchContext(context.Background(), "cj", "conv-1", map[string]any{"intent": "soporte"})
	require.NoError(t, err)
	assert.Equal(t, "cj", gotBody["tenantId"])
	patch, ok := gotBody["patch"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "soporte", patch["intent"])
}

func TestCreateNotification(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/notifications", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"id":"notif-1"}}`))
	})

	err := client.CreateNotification(context.Background(), "cj", Notification{
		Tipo:      "soporte",
		Titulo:    "Nuevo caso de soporte desde el chatbot",
		Mensaje:   "la app no abre",
		Prioridad: "media",
	})
	require.NoError(t, err)
	assert.Equal(t, "soporte", gotBody["tipo"])
	assert.Equal(t, "media", gotBody["prioridad"])
}

func TestRequestSurfacesServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"message":"tenantId is required"}}`))
	})

	_, err := client.UpsertContact(context.Background(), "cj", "WHATSAPP", "1", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenantId is required")
	assert.Contains(t, err.Error(), "422")
}
