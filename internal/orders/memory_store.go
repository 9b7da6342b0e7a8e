package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
	escrow map[string]int64 // asset -> base units held
}

// NewMemoryStore creates an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*Order),
		escrow: make(map[string]int64),
	}
}

func (m *MemoryStore) Create(ctx context.Context, order *Order, escrowDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *order
	m.orders[order.ID] = &cp
	if escrowDelta != 0 {
		m.escrow[order.Asset] += escrowDelta
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *order
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, order *Order, escrowDelta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[order.ID]; !ok {
		return ErrOrderNotFound
	}
	cp := *order
	m.orders[order.ID] = &cp
	if escrowDelta != 0 {
		m.escrow[order.Asset] += escrowDelta
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *MemoryStore) ListByAccount(ctx context.Context, account string, limit int) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Order
	for _, order := range m.orders {
		if order.Account == account {
			cp := *order
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListPending(ctx context.Context, limit int) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Order
	for _, order := range m.orders {
		if order.Status == StatusPending || order.Status == StatusApproved {
			cp := *order
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListExpirable(ctx context.Context, before time.Time, limit int) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Order
	for _, order := range m.orders {
		if order.Status == StatusPending && !order.ExpireAt.After(before) {
			cp := *order
			out = append(out, &cp)
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) EscrowBalances(ctx context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.escrow))
	for asset, bal := range m.escrow {
		if bal != 0 {
			out[asset] = bal
		}
	}
	return out, nil
}

func sortNewestFirst(list []*Order) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
