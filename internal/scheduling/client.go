// Package scheduling integrates the orchestrator with the legal clinic's
// appointment service (citas API).
package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/sofialabs/legalaid-ai-platform/internal/conversation"
	"github.com/sofialabs/legalaid-ai-platform/pkg/logging"
)

const (
	availabilityErrText = "No fue posible consultar disponibilidad en este momento."
	scheduleErrText     = "No fue posible completar el agendamiento en este momento."
	rescheduleErrText   = "No fue posible reprogramar la cita en este momento."
	cancelErrText       = "No fue posible cancelar la cita en este momento."
	genericErrText      = "Error de integración con agenda de citas"
)

// Client calls the citas API. It implements conversation.SchedulingAdapter.
// Errors returned to the flow engine carry user-presentable Spanish
// messages.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	internalToken string
	requestID     func() string
	breaker       *gobreaker.CircuitBreaker
	logger        *logging.Logger
}

// Options configures a Client. BaseURL is required.
type Options struct {
	BaseURL       string
	InternalToken string
	Timeout       time.Duration
	Logger        *logging.Logger
}

// NewClient creates an appointment-service client with a circuit breaker in
// front of it, so a struggling agenda backend degrades to fast failures.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "citas-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		httpClient:    &http.Client{Timeout: opts.Timeout},
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		internalToken: opts.InternalToken,
		requestID:     newRequestID,
		breaker:       breaker,
		logger:        opts.Logger,
	}
}

var _ conversation.SchedulingAdapter = (*Client)(nil)

func newRequestID() string {
	return uuid.NewString()
}

type apiEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

var hourSlotPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Availability returns the open booking hours for a day and mode.
func (c *Client) Availability(ctx context.Context, day conversation.Weekday, mode conversation.Mode) ([]int, error) {
	query := url.Values{}
	query.Set("day", string(day))
	query.Set("mode", string(mode))

	body, _, err := c.do(ctx, http.MethodGet, "/api/citas/chatbot/disponibilidad?"+query.Encode(), nil)
	if err != nil {
		c.logger.Warn("availability request failed", "day", string(day), "mode", string(mode), "error", err.Error())
		return nil, errors.New(availabilityErrText)
	}

	var payload struct {
		HorasDisponibles []string `json:"horasDisponibles"`
	}
	if err := json.Unmarshal(body.Data, &payload); err != nil {
		return nil, errors.New(availabilityErrText)
	}

	hours := make([]int, 0, len(payload.HorasDisponibles))
	for _, slot := range payload.HorasDisponibles {
		match := hourSlotPattern.FindStringSubmatch(strings.TrimSpace(slot))
		if match == nil {
			continue
		}
		hour, err := strconv.Atoi(match[1])
		if err != nil || hour < 0 || hour > 23 {
			continue
		}
		hours = append(hours, hour)
	}
	return hours, nil
}

type scheduleRequestBody struct {
	Day                string `json:"day"`
	Mode               string `json:"mode"`
	Hour24             int    `json:"hour24"`
	ConversationID     string `json:"conversationId"`
	Motivo             string `json:"motivo"`
	UserName           string `json:"userName"`
	UserDocumentType   string `json:"userDocumentType"`
	UserDocumentNumber string `json:"userDocumentNumber"`
	UserEmail          string `json:"userEmail"`
	UserPhone          string `json:"userPhone"`
}

type scheduleResponseBody struct {
	CitaID           string `json:"citaId"`
	EstudianteNombre string `json:"estudianteNombre"`
	EstudianteCorreo string `json:"estudianteCorreo"`
}

// Schedule books a new appointment.
func (c *Client) Schedule(ctx context.Context, req conversation.ScheduleRequest) (*conversation.ScheduleResult, error) {
	body := scheduleRequestBody{
		Day:                string(req.Day),
		Mode:               string(req.Mode),
		Hour24:             req.Hour24,
		ConversationID:     req.ConversationID,
		Motivo:             req.Reason,
		UserName:           req.User.FullName,
		UserDocumentType:   string(req.User.DocumentType),
		UserDocumentNumber: req.User.DocumentNumber,
		UserEmail:          req.User.Email,
		UserPhone:          req.User.Phone,
	}

	env, status, err := c.do(ctx, http.MethodPost, "/api/citas/chatbot/agendar", body)
	if err != nil {
		if status == http.StatusConflict {
			if outcome := classifyConflict(env); outcome != "" {
				return &conversation.ScheduleResult{Status: outcome}, nil
			}
		}
		return nil, scheduleError(env, err, scheduleErrText)
	}

	var data scheduleResponseBody
	if err := json.Unmarshal(env.Data, &data); err != nil || data.CitaID == "" {
		return nil, errors.New("No se recibió identificador de cita desde el servicio de agenda.")
	}
	return &conversation.ScheduleResult{
		Status:       conversation.ScheduleOK,
		CitaID:       data.CitaID,
		StudentName:  data.EstudianteNombre,
		StudentEmail: data.EstudianteCorreo,
	}, nil
}

// Reschedule moves an existing appointment to a new day and hour.
func (c *Client) Reschedule(ctx context.Context, citaID string, day conversation.Weekday, hour24 int) (*conversation.ScheduleResult, error) {
	body := map[string]any{"citaId": citaID, "day": string(day), "hour24": hour24}

	env, status, err := c.do(ctx, http.MethodPost, "/api/citas/chatbot/reprogramar", body)
	if err != nil {
		if status == http.StatusConflict && isSlotUnavailable(env) {
			return &conversation.ScheduleResult{Status: conversation.ScheduleSlotUnavailable}, nil
		}
		return nil, scheduleError(env, err, rescheduleErrText)
	}
	return &conversation.ScheduleResult{Status: conversation.ScheduleOK, CitaID: citaID}, nil
}

// Cancel cancels an existing appointment.
func (c *Client) Cancel(ctx context.Context, citaID string) error {
	env, _, err := c.do(ctx, http.MethodPost, "/api/citas/chatbot/cancelar", map[string]any{"citaId": citaID})
	if err != nil {
		return scheduleError(env, err, cancelErrText)
	}

	var data struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(env.Data, &data); err == nil && !data.OK {
		return errors.New(cancelErrText)
	}
	return nil
}

// SubmitSurvey records post-conversation feedback. Best effort.
func (c *Client) SubmitSurvey(ctx context.Context, rating int, comment *string) error {
	body := map[string]any{"calificacion": rating, "comentario": comment, "fuente": "chatbot"}
	if _, _, err := c.do(ctx, http.MethodPost, "/api/encuestas", body); err != nil {
		return fmt.Errorf("scheduling: survey submission failed: %w", err)
	}
	return nil
}

// do runs one request through the circuit breaker and parses the response
// envelope. On a non-2xx status the envelope (when parseable) is returned
// together with the error so callers can inspect the backend code.
func (c *Client) do(ctx context.Context, method, path string, body any) (*apiEnvelope, int, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("scheduling: failed to marshal request: %w", err)
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("scheduling: failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Request-Id", c.requestID())
		if c.internalToken != "" {
			req.Header.Set("X-Internal-Token", c.internalToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("scheduling: request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("scheduling: failed to read response: %w", err)
		}

		env := &apiEnvelope{}
		if len(data) > 0 {
			if jsonErr := json.Unmarshal(data, env); jsonErr != nil {
				env.Message = strings.TrimSpace(string(data))
			}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &httpFailure{status: resp.StatusCode, envelope: env}, nil
		}
		return &httpSuccess{envelope: env}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	switch outcome := result.(type) {
	case *httpSuccess:
		return outcome.envelope, http.StatusOK, nil
	case *httpFailure:
		return outcome.envelope, outcome.status, fmt.Errorf("scheduling: citas api returned status %d", outcome.status)
	}
	return nil, 0, errors.New(genericErrText)
}

type httpSuccess struct {
	envelope *apiEnvelope
}

type httpFailure struct {
	status   int
	envelope *apiEnvelope
}

func normalizeMessage(message string) string {
	lowered := strings.ToLower(message)
	replacer := strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")
	return replacer.Replace(lowered)
}

func isSlotUnavailable(env *apiEnvelope) bool {
	if env == nil {
		return false
	}
	if env.Code == "SLOT_NOT_AVAILABLE" {
		return true
	}
	message := normalizeMessage(env.Message)
	return strings.Contains(message, "hora seleccionada no esta disponible") ||
		strings.Contains(message, "slot_not_available") ||
		strings.Contains(message, "no esta disponible")
}

func isNoEligibleStudents(env *apiEnvelope) bool {
	if env == nil {
		return false
	}
	if env.Code == "NO_ELIGIBLE_STUDENTS" {
		return true
	}
	message := normalizeMessage(env.Message)
	return strings.Contains(message, "no hay estudiantes elegibles") ||
		strings.Contains(message, "no_eligible_students")
}

func classifyConflict(env *apiEnvelope) conversation.ScheduleStatus {
	switch {
	case isSlotUnavailable(env):
		return conversation.ScheduleSlotUnavailable
	case isNoEligibleStudents(env):
		return conversation.ScheduleNoEligibleStudents
	}
	return ""
}

// scheduleError prefers the backend-provided message, falling back to the
// operation default.
func scheduleError(env *apiEnvelope, err error, fallback string) error {
	if env != nil && strings.TrimSpace(env.Message) != "" {
		return errors.New(env.Message)
	}
	if err != nil && fallback == "" {
		return errors.New(genericErrText)
	}
	return errors.New(fallback)
}
