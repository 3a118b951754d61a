package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	event := &AuditEvent{ID: "evt-1", EventType: EventTypeCreate, UserID: "user1", Timestamp: baseTime}
	require.NoError(t, store.Insert(ctx, event))

	// mutating the caller's value must not reach the store
	event.UserID = "changed"

	events, err := store.FindAll(ctx, Sort{Field: "timestamp"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "user1", events[0].UserID)

	events[0].Description = "mutated"
	got, err := store.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Empty(t, got.Description)
}

func TestMemoryStore_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := store.Insert(ctx, &AuditEvent{
				ID:        fmt.Sprintf("evt-%d", i),
				EventType: EventTypeOther,
				UserID:    "user1",
				Timestamp: baseTime,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())

	events, err := store.FindByUser(ctx, "user1", Sort{Field: "timestamp", Direction: Ascending})
	require.NoError(t, err)
	assert.Len(t, events, 50)
	for i := 1; i < len(events); i++ {
		assert.Less(t, events[i-1].ID, events[i].ID, "equal timestamps are ordered by id")
	}
}
