package audit

import (
	"fmt"
	"strings"
	"time"
)

// EventType is the closed set of audit event categories
type EventType string

const (
	EventTypeLogin          EventType = "LOGIN"
	EventTypeLogout         EventType = "LOGOUT"
	EventTypeAccess         EventType = "ACCESS"
	EventTypeCreate         EventType = "CREATE"
	EventTypeUpdate         EventType = "UPDATE"
	EventTypeDelete         EventType = "DELETE"
	EventTypeAuthentication EventType = "AUTHENTICATION"
	EventTypeAuthorization  EventType = "AUTHORIZATION"
	EventTypeOther          EventType = "OTHER"
)

// EventTypes lists every valid event type in declaration order
var EventTypes = []EventType{
	EventTypeLogin,
	EventTypeLogout,
	EventTypeAccess,
	EventTypeCreate,
	EventTypeUpdate,
	EventTypeDelete,
	EventTypeAuthentication,
	EventTypeAuthorization,
	EventTypeOther,
}

// ParseEventType maps s to an EventType. Matching is exact and case-sensitive.
func ParseEventType(s string) (EventType, error) {
	for _, et := range EventTypes {
		if string(et) == s {
			return et, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEventType, s)
}

// Valid reports whether t is a member of the enumeration
func (t EventType) Valid() bool {
	_, err := ParseEventType(string(t))
	return err == nil
}

func (t EventType) String() string {
	return string(t)
}

// Field bounds for persisted events
const (
	MaxUserIDLength      = 100
	MaxDescriptionLength = 500
)

// AuditEvent is a single persisted audit record
type AuditEvent struct {
	ID          string    `json:"eventId"`
	EventType   EventType `json:"eventType"`
	Description string    `json:"description,omitempty"`
	UserID      string    `json:"userId"`
	Timestamp   time.Time `json:"timestamp"`
}

// LogRequest is the input to Service.LogEvent
type LogRequest struct {
	EventType   string `json:"eventType"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"userId"`
}

// LogResponse is returned for a successfully recorded event
type LogResponse struct {
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

// Direction is the ordering direction of a query
type Direction int

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// ParseDirection treats a case-insensitive "asc" as ascending and anything
// else, including garbage, as descending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, "asc") {
		return Ascending
	}
	return Descending
}

// Sort is a (field, direction) pair. Field is a persisted attribute name.
type Sort struct {
	Field     string
	Direction Direction
}

// Defaults applied by GetEvents when the caller leaves sorting unset
const (
	DefaultSortField = "timestamp"
	DefaultSortOrder = "desc"
)

// Filter holds the optional predicates of an event store query.
// A nil field places no restriction on that dimension.
type Filter struct {
	UserID    *string
	EventType *EventType
}

// EventQuery is the input to Service.GetEvents
type EventQuery struct {
	UserID    *string
	EventType *EventType
	SortBy    string
	SortOrder string
}

// ExportFormat represents the format for exporting audit logs
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson" // Newline-delimited JSON
)
