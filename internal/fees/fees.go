// Package fees computes settlement fees per asset and direction.
//
// Fees are expressed in basis points (parts per ten thousand) with a
// min/max clamp in base units. Setting both direction percentages to
// zero is an explicit opt-out: the fee is zero regardless of the clamps.
package fees

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Olisehgenesis/lait/internal/audit"
)

// MaxFeeBps is the hard ceiling on either direction's percentage (10%).
// Bounds the fees extractable by a compromised or careless admin.
const MaxFeeBps = 1000

var (
	ErrUnauthorized = errors.New("not authorized to configure fees")
	ErrFeeTooHigh   = errors.New("fee percentage exceeds hard ceiling")
	ErrInvalidFee   = errors.New("invalid fee configuration")
)

// Direction mirrors the order direction for fee selection.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Config is the per-asset fee schedule.
type Config struct {
	Asset     string    `json:"asset"`
	BuyBps    int64     `json:"buyBps"`
	SellBps   int64     `json:"sellBps"`
	MinFee    int64     `json:"minFee"` // base units
	MaxFee    int64     `json:"maxFee"` // base units; 0 = no max clamp
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// Compute returns the fee for the amount under this schedule.
func (c *Config) Compute(amount int64, dir Direction) int64 {
	// Both percentages zero is an explicit opt-out, clamps do not apply.
	if c.BuyBps == 0 && c.SellBps == 0 {
		return 0
	}

	bps := c.BuyBps
	if dir == Sell {
		bps = c.SellBps
	}

	fee := amount * bps / 10000
	if fee < c.MinFee {
		fee = c.MinFee
	}
	if c.MaxFee > 0 && fee > c.MaxFee {
		fee = c.MaxFee
	}
	return fee
}

// Store persists fee schedules.
type Store interface {
	Set(ctx context.Context, cfg *Config) error
	Get(ctx context.Context, asset string) (*Config, error)
	List(ctx context.Context) ([]*Config, error)
}

// Gate is the authorization check consulted on mutation.
type Gate interface {
	IsActiveAdmin(ctx context.Context, caller string) bool
}

// Auditor records fee changes on the audit trail.
type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

// Engine exposes fee computation over the stored schedules.
type Engine struct {
	store   Store
	gate    Gate
	auditor Auditor
}

// NewEngine creates a fee engine.
func NewEngine(store Store, gate Gate, auditor Auditor) *Engine {
	return &Engine{store: store, gate: gate, auditor: auditor}
}

// SetConfig installs a fee schedule for an asset. Active-admin gated.
func (e *Engine) SetConfig(ctx context.Context, caller string, cfg Config) error {
	if !e.gate.IsActiveAdmin(ctx, caller) {
		return ErrUnauthorized
	}
	cfg.Asset = strings.ToLower(strings.TrimSpace(cfg.Asset))
	if cfg.Asset == "" {
		return fmt.Errorf("%w: asset is required", ErrInvalidFee)
	}
	if cfg.BuyBps < 0 || cfg.SellBps < 0 || cfg.MinFee < 0 || cfg.MaxFee < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidFee)
	}
	if cfg.BuyBps > MaxFeeBps || cfg.SellBps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	if cfg.MaxFee > 0 && cfg.MinFee > cfg.MaxFee {
		return fmt.Errorf("%w: min fee above max fee", ErrInvalidFee)
	}

	cfg.UpdatedAt = time.Now()
	cfg.UpdatedBy = strings.ToLower(caller)
	if err := e.store.Set(ctx, &cfg); err != nil {
		return fmt.Errorf("failed to store fee config: %w", err)
	}

	e.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindConfigChanged,
		Actor:   cfg.UpdatedBy,
		Subject: "fees:" + cfg.Asset,
		Asset:   cfg.Asset,
		Detail: fmt.Sprintf("buyBps=%d sellBps=%d minFee=%d maxFee=%d",
			cfg.BuyBps, cfg.SellBps, cfg.MinFee, cfg.MaxFee),
	})
	return nil
}

// Compute returns the fee for an amount of an asset in a direction.
// Assets with no schedule pay no fee.
func (e *Engine) Compute(ctx context.Context, asset string, amount int64, dir Direction) (int64, error) {
	cfg, err := e.store.Get(ctx, strings.ToLower(asset))
	if err != nil {
		return 0, err
	}
	if cfg == nil {
		return 0, nil
	}
	return cfg.Compute(amount, dir), nil
}

// Get returns the fee schedule for an asset, nil if none configured.
func (e *Engine) Get(ctx context.Context, asset string) (*Config, error) {
	return e.store.Get(ctx, strings.ToLower(asset))
}

// List returns all fee schedules.
func (e *Engine) List(ctx context.Context) ([]*Config, error) {
	return e.store.List(ctx)
}
