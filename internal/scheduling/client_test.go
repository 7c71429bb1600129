package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofialabs/legalaid-ai-platform/internal/conversation"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{BaseURL: server.URL, InternalToken: "secret"})
}

func TestAvailabilityParsesHourSlots(t *testing.T) {
	var gotPath, gotDay, gotMode, gotToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDay = r.URL.Query().Get("day")
		gotMode = r.URL.Query().Get("mode")
		gotToken = r.Header.Get("X-Internal-Token")
		w.Write([]byte(`{"data":{"horasDisponibles":["08:00","9:00","  15:00 ","mediodia","25:00"]}}`))
	})

	hours, err := client.Availability(context.Background(), conversation.Lunes, conversation.ModeVirtual)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 9, 15}, hours)
	assert.Equal(t, "/api/citas/chatbot/disponibilidad", gotPath)
	assert.Equal(t, "lunes", gotDay)
	assert.Equal(t, "virtual", gotMode)
	assert.Equal(t, "secret", gotToken)
}

func TestAvailabilityErrorIsUserPresentable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Availability(context.Background(), conversation.Lunes, conversation.ModeVirtual)
	require.Error(t, err)
	assert.Equal(t, availabilityErrText, err.Error())
}

func TestScheduleHappyPath(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/citas/chatbot/agendar", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"citaId":"cita-42","estudianteNombre":"María Gómez","estudianteCorreo":"maria@uni.edu.co"}}`))
	})

	result, err := client.Schedule(context.Background(), conversation.ScheduleRequest{
		Day:            conversation.Martes,
		Mode:           conversation.ModeVirtual,
		Hour24:         9,
		ConversationID: "conv-1",
		Reason:         "Cita agendada desde chatbot",
		User: conversation.AppointmentUser{
			FullName:       "Ana Pérez",
			DocumentType:   conversation.DocCC,
			DocumentNumber: "1029384756",
			Email:          "ana@example.com",
			Phone:          "3001234567",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, conversation.ScheduleOK, result.Status)
	assert.Equal(t, "cita-42", result.CitaID)
	assert.Equal(t, "María Gómez", result.StudentName)
	assert.Equal(t, "maria@uni.edu.co", result.StudentEmail)

	assert.Equal(t, "martes", gotBody["day"])
	assert.Equal(t, "virtual", gotBody["mode"])
	assert.Equal(t, float64(9), gotBody["hour24"])
	assert.Equal(t, "Ana Pérez", gotBody["userName"])
	assert.Equal(t, "CC", gotBody["userDocumentType"])
}

func TestScheduleConflictMapsSlotUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"code":"SLOT_NOT_AVAILABLE","message":"La hora seleccionada no está disponible"}`))
	})

	result, err := client.Schedule(context.Background(), conversation.ScheduleRequest{})
	require.NoError(t, err)
	assert.Equal(t, conversation.ScheduleSlotUnavailable, result.Status)
}

func TestScheduleConflictMapsNoEligibleStudents(t *testing.T) {
	// No machine code, only the human message: the heuristic still matches.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"No hay estudiantes elegibles para esa modalidad"}`))
	})

	result, err := client.Schedule(context.Background(), conversation.ScheduleRequest{})
	require.NoError(t, err)
	assert.Equal(t, conversation.ScheduleNoEligibleStudents, result.Status)
}

func TestScheduleMissingCitaIDFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})

	_, err := client.Schedule(context.Background(), conversation.ScheduleRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identificador de cita")
}

func TestScheduleErrorPrefersBackendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"Agenda en mantenimiento"}`))
	})

	_, err := client.Schedule(context.Background(), conversation.ScheduleRequest{})
	require.Error(t, err)
	assert.Equal(t, "Agenda en mantenimiento", err.Error())
}

func TestRescheduleConflictMapsSlotUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/citas/chatbot/reprogramar", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"La hora seleccionada no está disponible"}`))
	})

	result, err := client.Reschedule(context.Background(), "cita-42", conversation.Jueves, 10)
	require.NoError(t, err)
	assert.Equal(t, conversation.ScheduleSlotUnavailable, result.Status)
}

func TestCancel(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		var gotBody map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/citas/chatbot/cancelar", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"data":{"ok":true}}`))
		})

		require.NoError(t, client.Cancel(context.Background(), "cita-42"))
		assert.Equal(t, "cita-42", gotBody["citaId"])
	})

	t.Run("backend rejects", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"ok":false}}`))
		})

		err := client.Cancel(context.Background(), "cita-42")
		require.Error(t, err)
		assert.Equal(t, cancelErrText, err.Error())
	})
}

func TestSubmitSurvey(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/encuestas", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"data":{"ok":true}}`))
	})

	comment := "muy buena atención"
	require.NoError(t, client.SubmitSurvey(context.Background(), 5, &comment))
	assert.Equal(t, float64(5), gotBody["calificacion"])
	assert.Equal(t, "muy buena atención", gotBody["comentario"])
	assert.Equal(t, "chatbot", gotBody["fuente"])
}
