package audit

import (
	"context"
	"fmt"
)

// EventStore provides durable storage and retrieval of audit events
type EventStore interface {
	// Insert persists a new event. It fails if the id already exists.
	Insert(ctx context.Context, event *AuditEvent) error

	// FindAll returns every stored event
	FindAll(ctx context.Context, sort Sort) ([]*AuditEvent, error)

	// FindByUser returns events recorded for userID
	FindByUser(ctx context.Context, userID string, sort Sort) ([]*AuditEvent, error)

	// FindByEventType returns events of the given type
	FindByEventType(ctx context.Context, eventType EventType, sort Sort) ([]*AuditEvent, error)

	// FindByUserAndEventType returns events matching both predicates
	FindByUserAndEventType(ctx context.Context, userID string, eventType EventType, sort Sort) ([]*AuditEvent, error)

	// Get retrieves a single event by id
	Get(ctx context.Context, id string) (*AuditEvent, error)
}

// searcher is the single parameterized query behind the four read paths
type searcher interface {
	Search(ctx context.Context, filter Filter, sort Sort) ([]*AuditEvent, error)
}

// readPaths adapts a searcher to the four EventStore read operations
type readPaths struct {
	s searcher
}

func (r readPaths) FindAll(ctx context.Context, sort Sort) ([]*AuditEvent, error) {
	return r.s.Search(ctx, Filter{}, sort)
}

func (r readPaths) FindByUser(ctx context.Context, userID string, sort Sort) ([]*AuditEvent, error) {
	return r.s.Search(ctx, Filter{UserID: &userID}, sort)
}

func (r readPaths) FindByEventType(ctx context.Context, eventType EventType, sort Sort) ([]*AuditEvent, error) {
	return r.s.Search(ctx, Filter{EventType: &eventType}, sort)
}

func (r readPaths) FindByUserAndEventType(ctx context.Context, userID string, eventType EventType, sort Sort) ([]*AuditEvent, error) {
	return r.s.Search(ctx, Filter{UserID: &userID, EventType: &eventType}, sort)
}

// sortFields maps accepted attribute names to their canonical column
var sortFields = map[string]string{
	"id":          "event_id",
	"eventId":     "event_id",
	"event_id":    "event_id",
	"eventType":   "event_type",
	"event_type":  "event_type",
	"description": "description",
	"userId":      "user_id",
	"user_id":     "user_id",
	"timestamp":   "timestamp",
}

// resolveSortField returns the column for a persisted attribute name
func resolveSortField(field string) (string, error) {
	col, ok := sortFields[field]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSortField, field)
	}
	return col, nil
}

// matches reports whether event satisfies every predicate in f
func (f Filter) matches(event *AuditEvent) bool {
	if f.UserID != nil && event.UserID != *f.UserID {
		return false
	}
	if f.EventType != nil && event.EventType != *f.EventType {
		return false
	}
	return true
}
