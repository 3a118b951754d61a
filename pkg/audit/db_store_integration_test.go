//go:build integration

package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresStore starts a PostgreSQL container and returns a store backed by it
func setupPostgresStore(t *testing.T) *DBStore {
	t.Helper()
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("Docker/Podman not available, skipping integration tests")
	}
	defer provider.Close()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("auditlog_test"),
		postgres.WithUsername("auditlog"),
		postgres.WithPassword("auditlog_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close database: %v", err)
		}
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	})

	store, err := NewDBStore(db, DialectPostgres)
	require.NoError(t, err)
	return store
}

func TestDBStore_PostgresIntegration(t *testing.T) {
	ctx := context.Background()
	store := setupPostgresStore(t)
	seedEvents(t, store)

	t.Run("ordering and filters", func(t *testing.T) {
		events, err := store.FindAll(ctx, Sort{Field: "timestamp", Direction: Descending})
		require.NoError(t, err)
		assert.Equal(t, []string{"evt-4", "evt-3", "evt-2", "evt-1"}, eventIDs(events))

		events, err = store.FindByUserAndEventType(ctx, "user2", EventTypeLogin, Sort{Field: "timestamp", Direction: Ascending})
		require.NoError(t, err)
		assert.Equal(t, []string{"evt-3"}, eventIDs(events))
	})

	t.Run("duplicate id maps to a storage error", func(t *testing.T) {
		err := store.Insert(ctx, &AuditEvent{ID: "evt-1", EventType: EventTypeOther, UserID: "u", Timestamp: baseTime})
		assert.True(t, IsStorageError(err))
		assert.ErrorIs(t, err, ErrDuplicateEventID)
	})

	t.Run("timestamps round trip in UTC", func(t *testing.T) {
		event, err := store.Get(ctx, "evt-2")
		require.NoError(t, err)
		assert.True(t, baseTime.Add(time.Minute).Equal(event.Timestamp))
		assert.Equal(t, time.UTC, event.Timestamp.Location())
	})

	t.Run("service over postgres", func(t *testing.T) {
		svc := NewService(store, nil)
		resp, err := svc.LogEvent(ctx, LogRequest{EventType: "AUTHORIZATION", UserID: "user7"})
		require.NoError(t, err)

		events, err := svc.GetEvents(ctx, EventQuery{UserID: &[]string{"user7"}[0]})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, resp.EventID, events[0].ID)
		assert.True(t, resp.Timestamp.Equal(events[0].Timestamp), "logged %v, stored %v", resp.Timestamp, events[0].Timestamp)

		event, err := svc.GetEvent(ctx, resp.EventID)
		require.NoError(t, err)
		assert.True(t, resp.Timestamp.Equal(event.Timestamp))
	})
}
