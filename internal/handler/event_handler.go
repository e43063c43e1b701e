package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"login-guard/internal/metrics"
	"login-guard/internal/models"
	"login-guard/internal/service"
	"login-guard/internal/util"
)

const (
	maxBodyBytes    = 1 << 20
	maxHistoryLimit = 50
)

type EventProcessor interface {
	OnEvent(ctx context.Context, event *models.AuthEvent) service.Outcome
	OnAdminEvent(ctx context.Context, event *models.AdminEvent, includeRepresentation bool) service.Outcome
}

type HistoryReader interface {
	QueryRecentLogins(ctx context.Context, userID string, limit int) ([]models.LocationHistoryEntry, error)
}

// EventHandler accepts identity provider events over HTTP and serves login
// history.
type EventHandler struct {
	processor EventProcessor
	history   HistoryReader
	logger    *zap.Logger
}

func NewEventHandler(processor EventProcessor, history HistoryReader, logger *zap.Logger) *EventHandler {
	return &EventHandler{processor: processor, history: history, logger: logger}
}

// Response is the envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

func successResponse(data interface{}, message string) Response {
	return Response{Success: true, Data: data, Message: message}
}

func errorResponse(err error, message string) Response {
	return Response{Success: false, Error: err.Error(), Message: message}
}

func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Post("/events", h.IngestEvent)
	r.Post("/admin-events", h.IngestAdminEvent)
	r.Get("/users/{userID}/logins", h.GetLoginHistory)
}

// IngestEvent handles an authentication event
// @Summary Ingest an authentication event
// @Accept json
// @Produce json
// @Success 202 {object} Response
// @Failure 400 {object} Response
// @Router /events [post]
func (h *EventHandler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	event, err := models.DecodeAuthEvent(body)
	if err != nil {
		h.respondWithError(w, getStatusCode(err), err, "Invalid event")
		return
	}

	metrics.EventsReceived.WithLabelValues("event", "http").Inc()
	out := h.processor.OnEvent(detach(r), event)
	h.respondWithJSON(w, http.StatusAccepted, successResponse(out, "Event processed"))
}

// IngestAdminEvent handles an admin audit event
// @Summary Ingest an admin event
// @Accept json
// @Produce json
// @Param includeRepresentation query bool false "Store the resource representation"
// @Success 202 {object} Response
// @Failure 400 {object} Response
// @Router /admin-events [post]
func (h *EventHandler) IngestAdminEvent(w http.ResponseWriter, r *http.Request) {
	includeRepresentation := false
	if v := r.URL.Query().Get("includeRepresentation"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, err, "Invalid includeRepresentation")
			return
		}
		includeRepresentation = parsed
	}

	body, err := readBody(w, r)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	event, err := models.DecodeAdminEvent(body)
	if err != nil {
		h.respondWithError(w, getStatusCode(err), err, "Invalid admin event")
		return
	}

	metrics.EventsReceived.WithLabelValues("admin_event", "http").Inc()
	out := h.processor.OnAdminEvent(detach(r), event, includeRepresentation)
	h.respondWithJSON(w, http.StatusAccepted, successResponse(out, "Admin event processed"))
}

// GetLoginHistory returns a user's recent logins, newest first
// @Summary Recent logins of a user
// @Produce json
// @Param userID path string true "User ID"
// @Param limit query int false "Maximum rows (1-50, default 3)"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 503 {object} Response
// @Router /users/{userID}/logins [get]
func (h *EventHandler) GetLoginHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.respondWithError(w, http.StatusBadRequest, models.ErrInvalidEvent, "User ID is required")
		return
	}

	limit := models.HistoryWindow
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.respondWithError(w, http.StatusBadRequest, errors.New("limit must be between 1 and 50"), "Invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.history.QueryRecentLogins(r.Context(), userID, limit)
	if err != nil {
		h.respondWithError(w, getStatusCode(err), err, "Failed to load login history")
		return
	}
	if entries == nil {
		entries = []models.LocationHistoryEntry{}
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(entries, "Login history retrieved"))
	h.logger.Debug("Login history served",
		util.String("user_id", userID),
		util.Int("rows", len(entries)),
		util.Duration("duration", time.Since(start)))
}

// detach keeps a client disconnect from cancelling an accepted event. The
// listener applies its own per-event timeout.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func (h *EventHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	respondWithJSON(w, statusCode, data, h.logger)
}

func (h *EventHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message))
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func getStatusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrStoreQuery), errors.Is(err, models.ErrStoreWrite):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
