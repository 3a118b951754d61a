// Package audit records and queries audit events.
//
// # Overview
//
// An audit event captures that a user did something: it has a server assigned
// id and UTC timestamp, one of a fixed set of event types, the acting user id
// and an optional description. Events are append-only.
//
// # Event Types
//
// LOGIN, LOGOUT, ACCESS, CREATE, UPDATE, DELETE, AUTHENTICATION, AUTHORIZATION, OTHER
//
// Event type names are matched exactly; "login" is rejected.
//
// # Storage
//
// EventStore is implemented by DBStore (PostgreSQL or SQLite through database/sql)
// and MemoryStore. Every read path returns the full matching set ordered by the
// requested field, with the event id as tie-breaker:
//
//	store, err := audit.NewDBStore(db, audit.DialectPostgres)
//	events, err := store.FindByUser(ctx, "alice", audit.Sort{Field: "timestamp", Direction: audit.Descending})
//
// Sort field names are resolved through a fixed column map. An unknown field fails
// with a StorageError wrapping ErrInvalidSortField.
//
// # Service
//
//	svc := audit.NewService(store, logger, audit.WithMetrics(metrics))
//	resp, err := svc.LogEvent(ctx, audit.LogRequest{EventType: "LOGIN", UserID: "alice"})
//	events, err := svc.GetEvents(ctx, audit.EventQuery{UserID: &user})
//
// GetEvents dispatches on which filters are present: user and type, then user,
// then type, then all events. sortOrder "asc" (any case) sorts ascending and any
// other value sorts descending.
//
// # HTTP API
//
//	POST /api/v1/audit/log
//	GET  /api/v1/audit/events?userId=&eventType=&sortBy=&sortOrder=
//	GET  /api/v1/audit/events/{id}
//	GET  /api/v1/audit/export?format=json|ndjson|csv
//
// Validation failures map to 400, unknown ids to 404 and storage failures to 500.
package audit
