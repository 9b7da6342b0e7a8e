package fees

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory fee config store for demo/development mode.
type MemoryStore struct {
	configs map[string]*Config
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory fee store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]*Config)}
}

func (m *MemoryStore) Set(ctx context.Context, cfg *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cfg
	m.configs[cfg.Asset] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, asset string) (*Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[asset]
	if !ok {
		return nil, nil
	}
	cp := *cfg
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Config
	for _, cfg := range m.configs {
		cp := *cfg
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Asset < result[j].Asset })
	return result, nil
}
