// Package rates stores advisory exchange rates per (asset, currency) pair.
//
// Rates are informational only: the order ledger never reads them. They
// exist so the operator side and users can agree on pricing out of band.
package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Olisehgenesis/lait/internal/audit"
)

var (
	ErrUnauthorized = errors.New("not authorized to set exchange rates")
	ErrRateNotFound = errors.New("exchange rate not found")
	ErrInvalidRate  = errors.New("invalid exchange rate")
)

// Rate is an advisory rate record.
type Rate struct {
	Asset     string    `json:"asset"`
	Currency  string    `json:"currency"` // ISO code, e.g. "USD"
	Rate      int64     `json:"rate"`     // scaled by 10^Decimals
	Decimals  int       `json:"decimals"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy"`
}

// Store persists rate records.
type Store interface {
	Set(ctx context.Context, rate *Rate) error
	Get(ctx context.Context, asset, currency string) (*Rate, error)
	List(ctx context.Context, asset string) ([]*Rate, error)
}

// Gate is the authorization check consulted on mutation.
type Gate interface {
	IsActiveAdmin(ctx context.Context, caller string) bool
}

// Auditor records rate changes on the audit trail.
type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

// Service manages advisory rates.
type Service struct {
	store   Store
	gate    Gate
	auditor Auditor
}

// NewService creates a rate service.
func NewService(store Store, gate Gate, auditor Auditor) *Service {
	return &Service{store: store, gate: gate, auditor: auditor}
}

// Set installs or updates a rate record. Active-admin gated.
func (s *Service) Set(ctx context.Context, caller string, rate Rate) error {
	if !s.gate.IsActiveAdmin(ctx, caller) {
		return ErrUnauthorized
	}
	rate.Asset = strings.ToLower(strings.TrimSpace(rate.Asset))
	rate.Currency = strings.ToUpper(strings.TrimSpace(rate.Currency))
	if rate.Asset == "" || rate.Currency == "" {
		return fmt.Errorf("%w: asset and currency are required", ErrInvalidRate)
	}
	if rate.Rate <= 0 || rate.Decimals < 0 || rate.Decimals > 18 {
		return fmt.Errorf("%w: rate must be positive, decimals in [0,18]", ErrInvalidRate)
	}

	rate.UpdatedAt = time.Now()
	rate.UpdatedBy = strings.ToLower(caller)
	if err := s.store.Set(ctx, &rate); err != nil {
		return fmt.Errorf("failed to store rate: %w", err)
	}

	s.auditor.Record(ctx, &audit.Event{
		Kind:         audit.KindRateUpdated,
		Actor:        rate.UpdatedBy,
		Subject:      rate.Asset + "/" + rate.Currency,
		Asset:        rate.Asset,
		FiatCurrency: rate.Currency,
		Detail:       fmt.Sprintf("rate=%d decimals=%d active=%t", rate.Rate, rate.Decimals, rate.Active),
	})
	return nil
}

// Get returns the rate for an (asset, currency) pair.
func (s *Service) Get(ctx context.Context, asset, currency string) (*Rate, error) {
	return s.store.Get(ctx, strings.ToLower(asset), strings.ToUpper(currency))
}

// List returns rates, optionally filtered by asset.
func (s *Service) List(ctx context.Context, asset string) ([]*Rate, error) {
	return s.store.List(ctx, strings.ToLower(asset))
}
