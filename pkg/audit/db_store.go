package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect selects the SQL flavor spoken by a DBStore
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// DefaultQueryTimeout bounds every store operation unless overridden
const DefaultQueryTimeout = 5 * time.Second

const selectColumns = "event_id, event_type, description, user_id, timestamp"

// DBStore implements EventStore on a SQL database
type DBStore struct {
	readPaths

	db           *sql.DB
	dialect      Dialect
	queryTimeout time.Duration
}

// DBStoreOption configures a DBStore
type DBStoreOption func(*DBStore)

// WithQueryTimeout sets the per-operation timeout applied by the store
func WithQueryTimeout(d time.Duration) DBStoreOption {
	return func(s *DBStore) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// NewDBStore creates a database-backed event store and ensures its schema exists
func NewDBStore(db *sql.DB, dialect Dialect, opts ...DBStoreOption) (*DBStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	store := &DBStore{
		db:           db,
		dialect:      dialect,
		queryTimeout: DefaultQueryTimeout,
	}
	store.readPaths = readPaths{s: store}

	for _, opt := range opts {
		opt(store)
	}

	if err := store.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_log table: %w", err)
	}

	return store, nil
}

// ensureTable creates the audit_log table and its lookup indexes if they don't exist
func (s *DBStore) ensureTable() error {
	timestampType := "TIMESTAMP WITH TIME ZONE"
	if s.dialect == DialectSQLite {
		timestampType = "TIMESTAMP"
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS audit_log (
		event_id VARCHAR(255) PRIMARY KEY,
		event_type VARCHAR(50) NOT NULL,
		description VARCHAR(500),
		user_id VARCHAR(100) NOT NULL,
		timestamp %s NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_user_id ON audit_log(user_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_event_type ON audit_log(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_log_user_event_type ON audit_log(user_id, event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
	`, timestampType)

	_, err := s.db.Exec(query)
	return err
}

// placeholder returns the n-th bind parameter for the store's dialect
func (s *DBStore) placeholder(n int) string {
	if s.dialect == DialectSQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// Insert persists a new audit event
func (s *DBStore) Insert(ctx context.Context, event *AuditEvent) error {
	if !event.EventType.Valid() {
		return storageError("insert", fmt.Errorf("%w: %q", ErrInvalidEventType, event.EventType))
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := fmt.Sprintf(
		"INSERT INTO audit_log (%s) VALUES (%s, %s, %s, %s, %s)",
		selectColumns,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5),
	)

	var description sql.NullString
	if event.Description != "" {
		description = sql.NullString{String: event.Description, Valid: true}
	}

	// sqlite3 persists times as text with the zone offset, so only UTC values sort chronologically
	_, err := s.db.ExecContext(ctx, query,
		event.ID, string(event.EventType), description, event.UserID, event.Timestamp.UTC(),
	)
	if err != nil {
		return storageError("insert", classifyError(err))
	}

	return nil
}

// Get retrieves a specific audit event by ID
func (s *DBStore) Get(ctx context.Context, id string) (*AuditEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM audit_log WHERE event_id = %s", selectColumns, s.placeholder(1))

	event, err := scanEvent(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, storageError("get", err)
	}

	return event, nil
}

// Search returns every event matching filter ordered by sort
func (s *DBStore) Search(ctx context.Context, filter Filter, sort Sort) ([]*AuditEvent, error) {
	column, err := resolveSortField(sort.Field)
	if err != nil {
		return nil, storageError("search", err)
	}

	query := "SELECT " + selectColumns + " FROM audit_log WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = %s", s.placeholder(argCount))
		args = append(args, *filter.UserID)
		argCount++
	}

	if filter.EventType != nil {
		query += fmt.Sprintf(" AND event_type = %s", s.placeholder(argCount))
		args = append(args, string(*filter.EventType))
	}

	order := "DESC"
	if sort.Direction == Ascending {
		order = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", column, order)
	if column != "event_id" {
		query += fmt.Sprintf(", event_id %s", order)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("search", err)
	}
	defer rows.Close()

	events := make([]*AuditEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, storageError("search", fmt.Errorf("failed to scan audit event: %w", err))
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError("search", fmt.Errorf("error iterating audit events: %w", err))
	}

	return events, nil
}

// Ping checks that the backing database is reachable
func (s *DBStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*AuditEvent, error) {
	var (
		event       AuditEvent
		eventType   string
		description sql.NullString
	)

	if err := row.Scan(&event.ID, &eventType, &description, &event.UserID, &event.Timestamp); err != nil {
		return nil, err
	}

	event.EventType = EventType(eventType)
	event.Description = description.String
	event.Timestamp = event.Timestamp.UTC()

	return &event, nil
}

// classifyError maps driver specific constraint violations onto store errors
func classifyError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateEventID, pqErr.Message)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return fmt.Errorf("%w: %s", ErrDuplicateEventID, strings.TrimSpace(sqliteErr.Error()))
	}

	return err
}
