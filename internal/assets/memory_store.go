package assets

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory asset support store for demo/development mode.
type MemoryStore struct {
	supported map[string]bool
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory asset support store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{supported: make(map[string]bool)}
}

func (m *MemoryStore) SetSupported(ctx context.Context, asset string, supported bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supported[asset] = supported
	return nil
}

func (m *MemoryStore) IsSupported(ctx context.Context, asset string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supported[asset], nil
}

func (m *MemoryStore) List(ctx context.Context) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]bool, len(m.supported))
	for k, v := range m.supported {
		out[k] = v
	}
	return out, nil
}
