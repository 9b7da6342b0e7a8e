// Package limits enforces the per-account daily fiat throughput cap.
//
// The check and the increment are a single atomic store operation so two
// concurrent order creations for the same account cannot both pass a
// check and then both reserve past the cap.
package limits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrLimitExceeded = errors.New("daily fiat limit exceeded")
	ErrInvalidAmount = errors.New("reserve amount must be positive")
)

// DayKey buckets a timestamp into a coarse calendar day (unix / 86400).
// Old day entries are simply never read again; no cleanup required.
func DayKey(t time.Time) int64 {
	return t.Unix() / 86400
}

// Store persists daily spend counters.
type Store interface {
	// Reserve atomically adds amount to (account, day) if the result does
	// not exceed limit, returning ErrLimitExceeded otherwise.
	Reserve(ctx context.Context, account string, day int64, amount, limit int64) error
	// Release subtracts a previously reserved amount, used to undo the
	// reservation when order creation fails after the limit check.
	Release(ctx context.Context, account string, day int64, amount int64) error
	// Spent returns the cumulative amount for (account, day).
	Spent(ctx context.Context, account string, day int64) (int64, error)
}

// LimitSource supplies the current daily cap in fiat minor units.
// A zero cap means unlimited.
type LimitSource interface {
	DailyFiatLimit(ctx context.Context) int64
}

// Tracker is the daily limit gate consulted at order creation.
type Tracker struct {
	store  Store
	source LimitSource
	now    func() time.Time
}

// NewTracker creates a tracker.
func NewTracker(store Store, source LimitSource) *Tracker {
	return &Tracker{store: store, source: source, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// CheckAndReserve reserves amount against today's cap for the account.
// Returns the day key so a failed creation can release the reservation.
func (t *Tracker) CheckAndReserve(ctx context.Context, account string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	day := DayKey(t.now())
	limit := t.source.DailyFiatLimit(ctx)
	if limit <= 0 {
		return day, nil // unlimited
	}

	if err := t.store.Reserve(ctx, strings.ToLower(account), day, amount, limit); err != nil {
		if errors.Is(err, ErrLimitExceeded) {
			return day, err
		}
		return day, fmt.Errorf("failed to reserve daily limit: %w", err)
	}
	return day, nil
}

// Release undoes a reservation made by CheckAndReserve.
func (t *Tracker) Release(ctx context.Context, account string, day, amount int64) error {
	if t.source.DailyFiatLimit(ctx) <= 0 {
		return nil // nothing was reserved
	}
	return t.store.Release(ctx, strings.ToLower(account), day, amount)
}

// SpentToday returns the account's cumulative reserved amount for today.
func (t *Tracker) SpentToday(ctx context.Context, account string) (int64, error) {
	return t.store.Spent(ctx, strings.ToLower(account), DayKey(t.now()))
}
