package audit

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory audit store for demo/development mode.
type MemoryStore struct {
	events []*Event
	nextID int64
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (m *MemoryStore) Append(ctx context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *event
	cp.ID = m.nextID
	m.nextID++
	m.events = append(m.events, &cp)
	event.ID = cp.ID
	return nil
}

func (m *MemoryStore) List(ctx context.Context, subject string, kind Kind, limit int) ([]*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Event
	// Newest first
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if subject != "" && e.Subject != subject {
			continue
		}
		if kind != "" && e.Kind != kind {
			continue
		}
		cp := *e
		result = append(result, &cp)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}
