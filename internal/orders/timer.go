package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Timer periodically sweeps orders past their expiry boundary and
// unwinds them. Expiry is permissionless, so the sweeper acts as the
// system caller of record.
type Timer struct {
	service  *Service
	store    Store
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
	running  atomic.Bool
}

// NewTimer creates a new order expiry timer.
func NewTimer(service *Service, store Store, logger *slog.Logger) *Timer {
	return &Timer{
		service:  service,
		store:    store,
		interval: 30 * time.Second,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Running reports whether the sweep loop is actively running.
func (t *Timer) Running() bool {
	return t.running.Load()
}

// Start begins the expiry sweep loop. Call in a goroutine.
func (t *Timer) Start(ctx context.Context) {
	t.running.Store(true)
	defer t.running.Store(false)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-ticker.C:
			t.safeSweep(ctx)
		}
	}
}

// Stop signals the timer to stop.
func (t *Timer) Stop() {
	select {
	case t.stop <- struct{}{}:
	default:
	}
}

func (t *Timer) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in order expiry timer", "panic", fmt.Sprint(r))
		}
	}()
	t.sweep(ctx)
}

func (t *Timer) sweep(ctx context.Context) {
	// Paginate until no expirable orders remain.
	const batchSize = 100
	totalExpired := 0

	for {
		expirable, err := t.store.ListExpirable(ctx, time.Now(), batchSize)
		if err != nil {
			t.logger.Warn("failed to list expirable orders", "error", err)
			break
		}
		if len(expirable) == 0 {
			break
		}

		for _, order := range expirable {
			if _, err := t.service.Expire(ctx, "system", order.ID); err != nil {
				t.logger.Warn("failed to expire order",
					"orderId", order.ID,
					"error", err,
				)
				continue
			}
			totalExpired++
			t.logger.Info("expired order",
				"orderId", order.ID,
				"account", order.Account,
				"asset", order.Asset,
				"amount", order.Amount,
			)
		}

		if len(expirable) < batchSize {
			break
		}
	}

	if totalExpired > 0 {
		t.logger.Info("expiry sweep complete", "ordersExpired", totalExpired)
	}
}
