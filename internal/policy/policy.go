// Package policy is the admin-settable configuration surface for the
// ledger: order size bounds per asset, the daily fiat cap, refund and
// expiry windows, the treasury account and the global pause toggle.
//
// Settings persist as plain key->value records; typed accessors fall
// back to the process defaults from config when a key is unset.
package policy

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Olisehgenesis/lait/internal/audit"
)

var (
	ErrUnauthorized = errors.New("not authorized to change policy")
	ErrInvalidValue = errors.New("invalid policy value")
)

// Setting keys.
const (
	keyDailyFiatLimit = "daily_fiat_limit"
	keyRefundWindow   = "refund_window"
	keyExpiryGrace    = "expiry_grace"
	keyTreasury       = "treasury_address"
	keyPaused         = "paused"
	keyMinOrderPrefix = "min_order_size:"
	keyMaxOrderPrefix = "max_order_size:"
)

// Store persists raw key->value settings.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, bool, error)
	All(ctx context.Context) (map[string]string, error)
}

// Gate is the authorization check consulted on mutation.
type Gate interface {
	CanConfigure(ctx context.Context, caller string) bool
}

// Auditor records policy changes on the audit trail.
type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

// Defaults carries the process-level fallbacks for unset keys.
type Defaults struct {
	DailyFiatLimit int64
	RefundWindow   time.Duration
	ExpiryGrace    time.Duration
	Treasury       string
}

// Service reads and writes policy settings.
type Service struct {
	store    Store
	gate     Gate
	auditor  Auditor
	defaults Defaults
}

// NewService creates a policy service.
func NewService(store Store, gate Gate, auditor Auditor, defaults Defaults) *Service {
	return &Service{store: store, gate: gate, auditor: auditor, defaults: defaults}
}

// Set writes a raw setting. Configure-capability gated.
func (s *Service) Set(ctx context.Context, caller, key, value string) error {
	if !s.gate.CanConfigure(ctx, caller) {
		return ErrUnauthorized
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidValue)
	}
	if err := validate(key, value); err != nil {
		return err
	}

	if err := s.store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to store setting: %w", err)
	}

	kind := audit.KindConfigChanged
	if key == keyPaused {
		kind = audit.KindPauseChanged
	}
	s.auditor.Record(ctx, &audit.Event{
		Kind:    kind,
		Actor:   strings.ToLower(caller),
		Subject: key,
		Detail:  "value=" + value,
	})
	return nil
}

func validate(key, value string) error {
	switch {
	case key == keyDailyFiatLimit,
		strings.HasPrefix(key, keyMinOrderPrefix),
		strings.HasPrefix(key, keyMaxOrderPrefix):
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidValue, key)
		}
	case key == keyRefundWindow, key == keyExpiryGrace:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: %s must be a positive duration", ErrInvalidValue, key)
		}
	case key == keyPaused:
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: %s must be true or false", ErrInvalidValue, key)
		}
	case key == keyTreasury:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidValue, key)
		}
	}
	return nil
}

// All returns every stored setting.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	return s.store.All(ctx)
}

// SetPaused toggles the global pause. While paused, order creation is
// blocked but settlement and refunds of existing orders stay available.
func (s *Service) SetPaused(ctx context.Context, caller string, paused bool) error {
	return s.Set(ctx, caller, keyPaused, strconv.FormatBool(paused))
}

// -----------------------------------------------------------------------------
// Typed accessors (read side; errors fall back to defaults)
// -----------------------------------------------------------------------------

func (s *Service) getString(ctx context.Context, key, fallback string) string {
	v, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	return v
}

func (s *Service) getInt64(ctx context.Context, key string, fallback int64) int64 {
	v, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Service) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	v, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// DailyFiatLimit returns the per-account daily cap; 0 = unlimited.
func (s *Service) DailyFiatLimit(ctx context.Context) int64 {
	return s.getInt64(ctx, keyDailyFiatLimit, s.defaults.DailyFiatLimit)
}

// RefundWindow returns the earliest-unwind window for fresh orders.
func (s *Service) RefundWindow(ctx context.Context) time.Duration {
	return s.getDuration(ctx, keyRefundWindow, s.defaults.RefundWindow)
}

// ExpiryGrace returns the grace period past the refund boundary after
// which anyone may expire the order.
func (s *Service) ExpiryGrace(ctx context.Context) time.Duration {
	return s.getDuration(ctx, keyExpiryGrace, s.defaults.ExpiryGrace)
}

// Treasury returns the destination account for settled funds and fees.
func (s *Service) Treasury(ctx context.Context) string {
	return s.getString(ctx, keyTreasury, s.defaults.Treasury)
}

// Paused reports the global pause toggle.
func (s *Service) Paused(ctx context.Context) bool {
	return s.getString(ctx, keyPaused, "false") == "true"
}

// OrderBounds returns the configured (min, max) order size for an asset
// in base units; zero means unbounded on that side.
func (s *Service) OrderBounds(ctx context.Context, asset string) (int64, int64) {
	asset = strings.ToLower(asset)
	min := s.getInt64(ctx, keyMinOrderPrefix+asset, 0)
	max := s.getInt64(ctx, keyMaxOrderPrefix+asset, 0)
	return min, max
}
