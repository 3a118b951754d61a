package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/auditlog/pkg/observability"
)

var tracer = otel.Tracer("github.com/platinummonkey/auditlog/pkg/audit")

// Access paths reported by GetEvents
const (
	AccessPathAll           = "all"
	AccessPathUser          = "user"
	AccessPathEventType     = "event_type"
	AccessPathUserEventType = "user_event_type"
)

// Service is the entry point for recording and querying audit events.
// It keeps no mutable state between calls and is safe for concurrent use.
type Service struct {
	store   EventStore
	logger  *observability.Logger
	metrics *observability.Metrics

	now   func() time.Time
	newID func() string
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *observability.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the wall clock used for event timestamps
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides event id generation
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates an audit log service on top of store
func NewService(store EventStore, logger *observability.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LogEvent validates req, assigns an id and timestamp, and persists the event
func (s *Service) LogEvent(ctx context.Context, req LogRequest) (*LogResponse, error) {
	ctx, span := tracer.Start(ctx, "audit.LogEvent")
	defer span.End()

	event, err := s.newEvent(req)
	if err != nil {
		s.metrics.RecordRejected(rejectReason(err))
		span.SetStatus(codes.Error, "rejected")
		observability.FromContext(ctx, s.logger).WithError(err).Debug("Rejected audit event")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("audit.event_id", event.ID),
		attribute.String("audit.event_type", string(event.EventType)),
	)

	start := time.Now()
	err = s.store.Insert(ctx, event)
	s.metrics.ObserveStorageOperation("insert", start, err)
	if err != nil {
		recordSpanError(span, err)
		observability.FromContext(ctx, s.logger).WithError(err).
			WithField("event_id", event.ID).
			Error("Failed to persist audit event")
		return nil, fmt.Errorf("failed to log audit event: %w", err)
	}

	s.metrics.RecordEventLogged(string(event.EventType))
	observability.FromContext(ctx, s.logger).WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": string(event.EventType),
	}).Debug("Audit event recorded")

	return &LogResponse{EventID: event.ID, Timestamp: event.Timestamp}, nil
}

// newEvent runs validation before constructing the event so that invalid
// requests never reach the store
func (s *Service) newEvent(req LogRequest) (*AuditEvent, error) {
	eventType, err := ParseEventType(req.EventType)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: userId", ErrMissingField)
	}
	if utf8.RuneCountInString(req.UserID) > MaxUserIDLength {
		return nil, fmt.Errorf("%w: userId is limited to %d characters", ErrFieldTooLong, MaxUserIDLength)
	}
	if utf8.RuneCountInString(req.Description) > MaxDescriptionLength {
		return nil, fmt.Errorf("%w: description is limited to %d characters", ErrFieldTooLong, MaxDescriptionLength)
	}

	return &AuditEvent{
		ID:          s.newID(),
		EventType:   eventType,
		Description: req.Description,
		UserID:      req.UserID,
		Timestamp:   s.now(),
	}, nil
}

// GetEvents resolves q into one of the store's read paths. Every call
// re-reads the full matching set.
func (s *Service) GetEvents(ctx context.Context, q EventQuery) ([]*AuditEvent, error) {
	ctx, span := tracer.Start(ctx, "audit.GetEvents")
	defer span.End()

	sort := ResolveSort(q.SortBy, q.SortOrder)

	var (
		events     []*AuditEvent
		err        error
		accessPath string
	)

	start := time.Now()
	switch {
	case q.UserID != nil && q.EventType != nil:
		accessPath = AccessPathUserEventType
		events, err = s.store.FindByUserAndEventType(ctx, *q.UserID, *q.EventType, sort)
	case q.UserID != nil:
		accessPath = AccessPathUser
		events, err = s.store.FindByUser(ctx, *q.UserID, sort)
	case q.EventType != nil:
		accessPath = AccessPathEventType
		events, err = s.store.FindByEventType(ctx, *q.EventType, sort)
	default:
		accessPath = AccessPathAll
		events, err = s.store.FindAll(ctx, sort)
	}
	s.metrics.ObserveStorageOperation("find_"+accessPath, start, err)
	s.metrics.RecordQuery(accessPath)

	span.SetAttributes(
		attribute.String("audit.access_path", accessPath),
		attribute.String("audit.sort_field", sort.Field),
		attribute.String("audit.sort_order", sort.Direction.String()),
	)

	if err != nil {
		recordSpanError(span, err)
		observability.FromContext(ctx, s.logger).WithError(err).
			WithField("access_path", accessPath).
			Error("Failed to query audit events")
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}

	if events == nil {
		events = []*AuditEvent{}
	}
	span.SetAttributes(attribute.Int("audit.result_count", len(events)))

	return events, nil
}

// GetEvent returns a single event by id
func (s *Service) GetEvent(ctx context.Context, id string) (*AuditEvent, error) {
	ctx, span := tracer.Start(ctx, "audit.GetEvent", trace.WithAttributes(attribute.String("audit.event_id", id)))
	defer span.End()

	start := time.Now()
	event, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrEventNotFound) {
		s.metrics.ObserveStorageOperation("get", start, nil)
		return nil, err
	}
	s.metrics.ObserveStorageOperation("get", start, err)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}

	return event, nil
}

// ResolveSort applies the query defaults: sortBy falls back to timestamp
// and sortOrder to descending.
func ResolveSort(sortBy, sortOrder string) Sort {
	if sortBy == "" {
		sortBy = DefaultSortField
	}
	if sortOrder == "" {
		sortOrder = DefaultSortOrder
	}
	return Sort{Field: sortBy, Direction: ParseDirection(sortOrder)}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEventType):
		return "invalid_event_type"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrFieldTooLong):
		return "field_too_long"
	default:
		return "other"
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
