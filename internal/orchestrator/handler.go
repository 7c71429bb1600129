package orchestrator

import (
	"encoding/json"
	"net/http"

	"github.com/sofialabs/legalaid-ai-platform/pkg/logging"
)

// Handler exposes the orchestrator over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the HTTP handler for inbound messages.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleMessage processes POST /v1/orchestrator/messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var in MessageIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := in.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	requestID := r.Header.Get("X-Request-Id")
	result, err := h.service.HandleMessage(r.Context(), in, requestID)
	if err != nil {
		h.logger.Error("message handling failed",
			"request_id", requestID,
			"error", err.Error())
		writeError(w, http.StatusBadGateway, "message processing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

// HealthCheck responds to liveness probes.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"message": message}})
}
