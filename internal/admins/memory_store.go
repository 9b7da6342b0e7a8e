package admins

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory admin store for demo/development mode.
type MemoryStore struct {
	admins map[string]*Admin
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory admin store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		admins: make(map[string]*Admin),
	}
}

func (m *MemoryStore) Create(ctx context.Context, admin *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := strings.ToLower(admin.Address)
	if _, ok := m.admins[addr]; ok {
		return ErrAdminExists
	}
	cp := *admin
	m.admins[addr] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, address string) (*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	admin, ok := m.admins[strings.ToLower(address)]
	if !ok {
		return nil, ErrAdminNotFound
	}
	cp := *admin
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, admin *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	addr := strings.ToLower(admin.Address)
	if _, ok := m.admins[addr]; !ok {
		return ErrAdminNotFound
	}
	cp := *admin
	m.admins[addr] = &cp
	return nil
}

func (m *MemoryStore) List(ctx context.Context, activeOnly bool) ([]*Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Admin
	for _, a := range m.admins {
		if activeOnly && !a.Active {
			continue
		}
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AddedAt.Before(result[j].AddedAt)
	})
	return result, nil
}
