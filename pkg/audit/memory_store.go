package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an EventStore held in process memory
type MemoryStore struct {
	readPaths

	mu     sync.RWMutex
	events map[string]AuditEvent
}

// NewMemoryStore creates an empty in-memory event store
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{events: make(map[string]AuditEvent)}
	s.readPaths = readPaths{s: s}
	return s
}

// Insert stores a copy of event
func (s *MemoryStore) Insert(_ context.Context, event *AuditEvent) error {
	if !event.EventType.Valid() {
		return storageError("insert", fmt.Errorf("%w: %q", ErrInvalidEventType, event.EventType))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return storageError("insert", fmt.Errorf("%w: %s", ErrDuplicateEventID, event.ID))
	}
	stored := *event
	stored.Timestamp = stored.Timestamp.UTC()
	s.events[event.ID] = stored
	return nil
}

// Get retrieves a specific audit event by ID
func (s *MemoryStore) Get(_ context.Context, id string) (*AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &event, nil
}

// Search returns copies of every event matching filter ordered by sort
func (s *MemoryStore) Search(_ context.Context, filter Filter, order Sort) ([]*AuditEvent, error) {
	column, err := resolveSortField(order.Field)
	if err != nil {
		return nil, storageError("search", err)
	}

	s.mu.RLock()
	events := make([]*AuditEvent, 0, len(s.events))
	for _, event := range s.events {
		if filter.matches(&event) {
			e := event
			events = append(events, &e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		c := compareColumn(column, events[i], events[j])
		if c == 0 {
			c = strings.Compare(events[i].ID, events[j].ID)
		}
		if order.Direction == Ascending {
			return c < 0
		}
		return c > 0
	})

	return events, nil
}

// Len returns the number of stored events
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func compareColumn(column string, a, b *AuditEvent) int {
	switch column {
	case "event_type":
		return strings.Compare(string(a.EventType), string(b.EventType))
	case "description":
		return strings.Compare(a.Description, b.Description)
	case "user_id":
		return strings.Compare(a.UserID, b.UserID)
	case "timestamp":
		return a.Timestamp.Compare(b.Timestamp)
	default:
		return strings.Compare(a.ID, b.ID)
	}
}
