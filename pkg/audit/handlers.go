package audit

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/auditlog/pkg/httputil"
	"github.com/platinummonkey/auditlog/pkg/observability"
)

// EventService is the behavior the HTTP layer needs from Service
type EventService interface {
	LogEvent(ctx context.Context, req LogRequest) (*LogResponse, error)
	GetEvents(ctx context.Context, q EventQuery) ([]*AuditEvent, error)
	GetEvent(ctx context.Context, id string) (*AuditEvent, error)
}

// Handlers provides HTTP handlers for the audit log API
type Handlers struct {
	service EventService
	logger  *observability.Logger
}

// NewHandlers creates new audit handlers
func NewHandlers(service EventService, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Handlers{
		service: service,
		logger:  logger,
	}
}

// APIPrefix is the path prefix of every audit log route
const APIPrefix = "/api/v1/audit"

// RegisterRoutes registers audit log routes under APIPrefix. Routes sit on
// router itself so a method mismatch answers 405 rather than 404.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(APIPrefix+"/log", h.logEvent).Methods(http.MethodPost)
	router.HandleFunc(APIPrefix+"/events", h.listEvents).Methods(http.MethodGet)
	router.HandleFunc(APIPrefix+"/events/{id}", h.getEvent).Methods(http.MethodGet)
	router.HandleFunc(APIPrefix+"/export", h.exportEvents).Methods(http.MethodGet)
}

// logEvent handles POST /api/v1/audit/log
func (h *Handlers) logEvent(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	resp, err := h.service.LogEvent(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteCreated(w, resp)
}

// listEvents handles GET /api/v1/audit/events
func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	query, err := parseEventQuery(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := h.service.GetEvents(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, events)
}

// getEvent handles GET /api/v1/audit/events/{id}
func (h *Handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	event, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, event)
}

// exportEvents handles GET /api/v1/audit/export
func (h *Handlers) exportEvents(w http.ResponseWriter, r *http.Request) {
	format, err := ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	query, err := parseEventQuery(r)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	events, err := h.service.GetEvents(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	data, err := Export(events, format)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+format.FileName())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		observability.FromContext(r.Context(), h.logger).WithError(err).Warn("Failed to write export response")
	}
}

// writeServiceError maps service errors onto HTTP statuses
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsValidationError(err):
		httputil.WriteValidationError(w, err.Error())
	case errors.Is(err, ErrEventNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	default:
		observability.FromContext(r.Context(), h.logger).WithError(err).
			WithField("path", r.URL.Path).
			Error("Audit request failed")
		httputil.WriteInternalError(w)
	}
}

// parseEventQuery reads the event filters and sort options from the query
// string. A filter applies whenever its parameter is present, so userId=
// matches no stored event and eventType= is rejected.
func parseEventQuery(r *http.Request) (EventQuery, error) {
	values := r.URL.Query()
	query := EventQuery{
		SortBy:    httputil.ParseQueryString(r, "sortBy", DefaultSortField),
		SortOrder: httputil.ParseQueryString(r, "sortOrder", DefaultSortOrder),
	}

	if values.Has("userId") {
		userID := values.Get("userId")
		query.UserID = &userID
	}

	if values.Has("eventType") {
		raw := values.Get("eventType")
		eventType, err := ParseEventType(raw)
		if err != nil {
			return EventQuery{}, err
		}
		query.EventType = &eventType
	}

	return query, nil
}
