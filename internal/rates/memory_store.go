package rates

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory rate store for demo/development mode.
type MemoryStore struct {
	rates map[string]*Rate // key: asset + "/" + currency
	mu    sync.RWMutex
}

// NewMemoryStore creates a new in-memory rate store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rates: make(map[string]*Rate)}
}

func key(asset, currency string) string {
	return asset + "/" + currency
}

func (m *MemoryStore) Set(ctx context.Context, rate *Rate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rate
	m.rates[key(rate.Asset, rate.Currency)] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, asset, currency string) (*Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rate, ok := m.rates[key(asset, currency)]
	if !ok {
		return nil, ErrRateNotFound
	}
	cp := *rate
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, asset string) ([]*Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Rate
	for _, r := range m.rates {
		if asset != "" && r.Asset != asset {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Asset != result[j].Asset {
			return result[i].Asset < result[j].Asset
		}
		return result[i].Currency < result[j].Currency
	})
	return result, nil
}
