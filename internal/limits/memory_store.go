package limits

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory daily spend store for demo/development mode.
type MemoryStore struct {
	spent map[string]int64 // key: account@day
	mu    sync.Mutex
}

// NewMemoryStore creates a new in-memory daily spend store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{spent: make(map[string]int64)}
}

func spendKey(account string, day int64) string {
	return fmt.Sprintf("%s@%d", account, day)
}

func (m *MemoryStore) Reserve(ctx context.Context, account string, day int64, amount, limit int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := spendKey(account, day)
	if m.spent[k]+amount > limit {
		return ErrLimitExceeded
	}
	m.spent[k] += amount
	return nil
}

func (m *MemoryStore) Release(ctx context.Context, account string, day int64, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := spendKey(account, day)
	m.spent[k] -= amount
	if m.spent[k] < 0 {
		m.spent[k] = 0
	}
	return nil
}

func (m *MemoryStore) Spent(ctx context.Context, account string, day int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spent[spendKey(account, day)], nil
}
