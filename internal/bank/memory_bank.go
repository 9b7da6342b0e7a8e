package bank

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryBank is an in-memory Transfer implementation for demo mode and
// tests. It tracks per-account balances, custody-pull allowances, and
// the custody pool itself. All operations commit under a single mutex.
type MemoryBank struct {
	mu         sync.Mutex
	balances   map[string]map[string]int64 // account -> asset -> balance
	allowances map[string]map[string]int64 // account -> asset -> approved for pulls
	custody    map[string]int64            // asset -> custody pool balance
}

// NewMemoryBank creates an empty in-memory bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances:   make(map[string]map[string]int64),
		allowances: make(map[string]map[string]int64),
		custody:    make(map[string]int64),
	}
}

func get(m map[string]map[string]int64, account, asset string) int64 {
	if inner, ok := m[account]; ok {
		return inner[asset]
	}
	return 0
}

func add(m map[string]map[string]int64, account, asset string, delta int64) {
	inner, ok := m[account]
	if !ok {
		inner = make(map[string]int64)
		m[account] = inner
	}
	inner[asset] += delta
}

func norm(s string) string { return strings.ToLower(s) }

// Credit mints balance for an account (demo faucet / test setup).
func (b *MemoryBank) Credit(account, asset string, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	add(b.balances, norm(account), norm(asset), amount)
}

// Approve sets the custody-pull allowance for an account and asset.
func (b *MemoryBank) Approve(account, asset string, amount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inner, ok := b.allowances[norm(account)]
	if !ok {
		inner = make(map[string]int64)
		b.allowances[norm(account)] = inner
	}
	inner[norm(asset)] = amount
}

// BalanceOf returns an account's balance for an asset.
func (b *MemoryBank) BalanceOf(account, asset string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return get(b.balances, norm(account), norm(asset))
}

// AllowanceOf returns an account's remaining custody-pull allowance.
func (b *MemoryBank) AllowanceOf(account, asset string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return get(b.allowances, norm(account), norm(asset))
}

// CustodyOf returns the custody pool balance for an asset.
func (b *MemoryBank) CustodyOf(asset string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.custody[norm(asset)]
}

func (b *MemoryBank) Pull(ctx context.Context, from, asset string, amount int64, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount", ErrTransferFailed)
	}
	from, asset = norm(from), norm(asset)

	b.mu.Lock()
	defer b.mu.Unlock()

	if get(b.allowances, from, asset) < amount {
		return fmt.Errorf("%w: insufficient allowance from %s", ErrTransferFailed, from)
	}
	if get(b.balances, from, asset) < amount {
		return fmt.Errorf("%w: insufficient balance in %s", ErrTransferFailed, from)
	}

	add(b.allowances, from, asset, -amount)
	add(b.balances, from, asset, -amount)
	b.custody[asset] += amount
	return nil
}

func (b *MemoryBank) Push(ctx context.Context, to, asset string, amount int64, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount", ErrTransferFailed)
	}
	to, asset = norm(to), norm(asset)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.custody[asset] < amount {
		return fmt.Errorf("%w: insufficient custody balance of %s", ErrTransferFailed, asset)
	}

	b.custody[asset] -= amount
	add(b.balances, to, asset, amount)
	return nil
}

func (b *MemoryBank) PullTo(ctx context.Context, from, to, asset string, amount int64, reference string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: non-positive amount", ErrTransferFailed)
	}
	from, to, asset = norm(from), norm(to), norm(asset)

	b.mu.Lock()
	defer b.mu.Unlock()

	if get(b.allowances, from, asset) < amount {
		return fmt.Errorf("%w: insufficient allowance from %s", ErrTransferFailed, from)
	}
	if get(b.balances, from, asset) < amount {
		return fmt.Errorf("%w: insufficient balance in %s", ErrTransferFailed, from)
	}

	add(b.allowances, from, asset, -amount)
	add(b.balances, from, asset, -amount)
	add(b.balances, to, asset, amount)
	return nil
}
