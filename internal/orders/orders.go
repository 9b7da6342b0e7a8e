// Package orders implements the escrow order ledger.
//
// Flow:
//  1. Account creates an order. BUY direction pulls the asset into
//     custody immediately; SELL only records intent.
//  2. An operator with the settle capability fills the order once the
//     fiat leg has cleared, minus the configured fee.
//  3. Unfilled orders unwind: refund (account or operator, after the
//     refund window) or expiry (anyone, after the grace period).
//
// Completed orders are never destroyed; they remain as the audit record.
// Every mutating operation runs under a single writer lock, and the one
// external interaction per operation (the value transfer) can never call
// back into the ledger.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Olisehgenesis/lait/internal/audit"
	"github.com/Olisehgenesis/lait/internal/bank"
	"github.com/Olisehgenesis/lait/internal/idgen"
	"github.com/Olisehgenesis/lait/internal/metrics"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrUnauthorized    = errors.New("not authorized for this order operation")
	ErrInvalidState    = errors.New("invalid order status for this operation")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooEarly        = errors.New("refund window has not passed yet")
	ErrPaused          = errors.New("order creation is paused")
	ErrMetadataTooBig  = errors.New("metadata exceeds size cap")
	ErrMetadataEdited  = errors.New("order metadata was edited, record cannot be deleted")
	ErrEscrowUndeleted = errors.New("order holds escrowed funds, unwind it instead of deleting")
)

// Direction says which way value moves.
type Direction string

const (
	// Buy: the account deposits the asset into custody to receive fiat.
	Buy Direction = "BUY"
	// Sell: the account will deliver the asset at fill time in exchange
	// for fiat paid upfront by the operator.
	Sell Direction = "SELL"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"  // Created; BUY funds locked in escrow
	StatusApproved Status = "approved" // Operator acknowledged, not yet settled
	StatusFilled   Status = "filled"   // Fiat leg confirmed, value released
	StatusRefunded Status = "refunded" // Unwound back to the account
	StatusExpired  Status = "expired"  // Unwound by timeout cleanup
)

// Order is a single escrow order record.
type Order struct {
	ID             string     `json:"id"`
	Account        string     `json:"account"`
	Asset          string     `json:"asset"`
	Amount         int64      `json:"amount"` // base units of Asset
	FiatCurrency   string     `json:"fiatCurrency"`
	FiatAmount     int64      `json:"fiatAmount"` // minor units
	Metadata       string     `json:"metadata,omitempty"`
	Direction      Direction  `json:"direction"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	MinRefundAt    time.Time  `json:"minRefundAt"`
	ExpireAt       time.Time  `json:"expireAt"`
	FilledBy       string     `json:"filledBy,omitempty"`
	FilledAt       *time.Time `json:"filledAt,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	MetadataEdited bool       `json:"metadataEdited"`
	LimitDay       int64      `json:"-"` // daily-limit bucket the fiat amount was reserved in
}

// IsTerminal returns true if the order is in a final state.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case StatusFilled, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

// holdsEscrow reports whether the order currently holds custody funds.
func (o *Order) holdsEscrow() bool {
	return o.Direction == Buy && !o.IsTerminal()
}

// Store persists orders and the per-asset escrow balances. Mutations
// that change both an order and its asset's escrow balance commit them
// together, so readers always see a reconciled snapshot.
type Store interface {
	Create(ctx context.Context, order *Order, escrowDelta int64) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, order *Order, escrowDelta int64) error
	Delete(ctx context.Context, id string) error
	ListByAccount(ctx context.Context, account string, limit int) ([]*Order, error)
	ListPending(ctx context.Context, limit int) ([]*Order, error)
	ListExpirable(ctx context.Context, before time.Time, limit int) ([]*Order, error)
	EscrowBalances(ctx context.Context) (map[string]int64, error)
}

// Gate authorizes privileged transitions.
type Gate interface {
	CanSettle(ctx context.Context, caller string) bool
}

// AdminStats records per-operator settlement statistics.
type AdminStats interface {
	RecordFill(ctx context.Context, address string, fiatAmount int64) error
}

// AssetRegistry vets assets for escrow eligibility.
type AssetRegistry interface {
	Require(ctx context.Context, asset string) error
}

// FeeSource computes the settlement fee for an order.
type FeeSource interface {
	Fee(ctx context.Context, asset string, amount int64, direction Direction) (int64, error)
}

// LimitTracker reserves fiat throughput against the daily cap.
type LimitTracker interface {
	CheckAndReserve(ctx context.Context, account string, amount int64) (int64, error)
	Release(ctx context.Context, account string, day, amount int64) error
}

// Policy supplies the runtime order policy.
type Policy interface {
	Paused(ctx context.Context) bool
	RefundWindow(ctx context.Context) time.Duration
	ExpiryGrace(ctx context.Context) time.Duration
	Treasury(ctx context.Context) string
	OrderBounds(ctx context.Context, asset string) (min, max int64)
}

// Auditor records order transitions on the audit trail.
type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

// CreateRequest contains the parameters for creating an order.
type CreateRequest struct {
	Direction    string `json:"direction" binding:"required"`
	Asset        string `json:"asset" binding:"required"`
	Amount       int64  `json:"amount" binding:"required"`
	FiatCurrency string `json:"fiatCurrency" binding:"required"`
	FiatAmount   int64  `json:"fiatAmount" binding:"required"`
	Metadata     string `json:"metadata"`
}

// Service implements the order state machine.
type Service struct {
	store    Store
	gate     Gate
	stats    AdminStats
	assets   AssetRegistry
	fees     FeeSource
	limits   LimitTracker
	transfer bank.Transfer
	policy   Policy
	auditor  Auditor

	maxMetadata int
	seq         idgen.Sequence

	// Single writer: every mutating operation runs to completion with
	// no interleaving from any other mutating operation.
	mu  sync.Mutex
	now func() time.Time
}

// NewService creates the order ledger service.
func NewService(store Store, gate Gate, stats AdminStats, assets AssetRegistry,
	fees FeeSource, limits LimitTracker, transfer bank.Transfer,
	policy Policy, auditor Auditor, maxMetadata int) *Service {
	return &Service{
		store:       store,
		gate:        gate,
		stats:       stats,
		assets:      assets,
		fees:        fees,
		limits:      limits,
		transfer:    transfer,
		policy:      policy,
		auditor:     auditor,
		maxMetadata: maxMetadata,
		now:         time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create validates, reserves the daily limit, pulls BUY funds into
// custody, and only then commits the pending order record. Any failure
// after the limit reservation releases it; a store failure after a BUY
// pull compensates by pushing the funds back.
func (s *Service) Create(ctx context.Context, account string, req CreateRequest) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy.Paused(ctx) {
		return nil, ErrPaused
	}

	dir := Direction(strings.ToUpper(req.Direction))
	if dir != Buy && dir != Sell {
		return nil, fmt.Errorf("%w: direction must be BUY or SELL", ErrInvalidAmount)
	}
	asset := strings.ToLower(strings.TrimSpace(req.Asset))
	if err := s.assets.Require(ctx, asset); err != nil {
		return nil, err
	}
	if req.Amount <= 0 || req.FiatAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	if min, max := s.policy.OrderBounds(ctx, asset); (min > 0 && req.Amount < min) || (max > 0 && req.Amount > max) {
		return nil, fmt.Errorf("%w: amount outside configured bounds", ErrInvalidAmount)
	}
	if len(req.Metadata) > s.maxMetadata {
		return nil, ErrMetadataTooBig
	}

	account = strings.ToLower(account)
	day, err := s.limits.CheckAndReserve(ctx, account, req.FiatAmount)
	if err != nil {
		metrics.LimitDenialsTotal.Inc()
		return nil, err
	}

	now := s.now()
	refundAt := now.Add(s.policy.RefundWindow(ctx))
	order := &Order{
		ID:           s.seq.Next("ord_"),
		Account:      account,
		Asset:        asset,
		Amount:       req.Amount,
		FiatCurrency: strings.ToUpper(req.FiatCurrency),
		FiatAmount:   req.FiatAmount,
		Metadata:     req.Metadata,
		Direction:    dir,
		Status:       StatusPending,
		CreatedAt:    now,
		MinRefundAt:  refundAt,
		ExpireAt:     refundAt.Add(s.policy.ExpiryGrace(ctx)),
		LimitDay:     day,
	}

	escrowDelta := int64(0)
	if dir == Buy {
		// The pull is the only external call in this operation. It must
		// confirm before the record is committed as pending.
		if err := s.transfer.Pull(ctx, account, asset, req.Amount, order.ID); err != nil {
			_ = s.limits.Release(ctx, account, day, req.FiatAmount)
			metrics.TransferFailuresTotal.Inc()
			return nil, err
		}
		escrowDelta = req.Amount
	}

	if err := s.store.Create(ctx, order, escrowDelta); err != nil {
		if dir == Buy {
			// Funds are in custody without a record; push them back.
			_ = s.transfer.Push(ctx, account, asset, req.Amount, order.ID)
		}
		_ = s.limits.Release(ctx, account, day, req.FiatAmount)
		return nil, fmt.Errorf("failed to create order record: %w", err)
	}

	metrics.OrdersTotal.WithLabelValues(string(dir), string(StatusPending)).Inc()
	if escrowDelta != 0 {
		metrics.EscrowBalance.WithLabelValues(asset).Add(float64(escrowDelta))
	}
	s.auditor.Record(ctx, &audit.Event{
		Kind:         audit.KindOrderCreated,
		Actor:        account,
		Subject:      order.ID,
		Asset:        asset,
		Amount:       req.Amount,
		FiatCurrency: order.FiatCurrency,
		FiatAmount:   req.FiatAmount,
		Detail:       string(dir),
	})
	return order, nil
}

// Approve moves a pending order to the approved stage. No funds move.
func (s *Service) Approve(ctx context.Context, caller, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.CanSettle(ctx, caller) {
		return nil, ErrUnauthorized
	}
	order, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPending {
		return nil, ErrInvalidState
	}

	order.Status = StatusApproved
	if err := s.store.Update(ctx, order, 0); err != nil {
		return nil, fmt.Errorf("failed to approve order: %w", err)
	}

	metrics.OrdersTotal.WithLabelValues(string(order.Direction), string(StatusApproved)).Inc()
	s.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindOrderApproved,
		Actor:   strings.ToLower(caller),
		Subject: order.ID,
		Asset:   order.Asset,
	})
	return order, nil
}

// Fill settles an order after the fiat leg cleared. Settle-capability
// gated. The fee is computed from the current schedule; the remainder
// moves to the treasury. All internal effects commit first, and a failed
// transfer rolls every one of them back.
func (s *Service) Fill(ctx context.Context, caller, id, notes string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.CanSettle(ctx, caller) {
		return nil, ErrUnauthorized
	}
	order, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPending && order.Status != StatusApproved {
		return nil, ErrInvalidState
	}

	fee, err := s.fees.Fee(ctx, order.Asset, order.Amount, order.Direction)
	if err != nil {
		return nil, fmt.Errorf("failed to compute fee: %w", err)
	}
	if fee < 0 || fee >= order.Amount {
		return nil, fmt.Errorf("%w: fee %d out of range for amount %d", ErrInvalidAmount, fee, order.Amount)
	}

	snapshot := *order
	now := s.now()
	caller = strings.ToLower(caller)
	order.Status = StatusFilled
	order.FilledBy = caller
	order.FilledAt = &now
	order.Notes = notes

	escrowDelta := int64(0)
	if order.Direction == Buy {
		escrowDelta = -order.Amount
	}
	if err := s.store.Update(ctx, order, escrowDelta); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	treasury := s.policy.Treasury(ctx)
	if err := s.settleValue(ctx, order, treasury, fee); err != nil {
		// Roll the internal effects back; no partial fill survives.
		if revertErr := s.store.Update(ctx, &snapshot, -escrowDelta); revertErr != nil {
			return nil, fmt.Errorf("transfer failed and rollback failed (requires manual resolution): %v: %w", revertErr, err)
		}
		metrics.TransferFailuresTotal.Inc()
		return nil, err
	}

	if err := s.stats.RecordFill(ctx, caller, order.FiatAmount); err != nil {
		// Stats are advisory; the settlement itself already committed.
		s.auditor.Record(ctx, &audit.Event{
			Kind:    audit.KindOrderFilled,
			Actor:   caller,
			Subject: order.ID,
			Detail:  "admin stats update failed: " + err.Error(),
		})
	}

	metrics.OrdersTotal.WithLabelValues(string(order.Direction), string(StatusFilled)).Inc()
	if escrowDelta != 0 {
		metrics.EscrowBalance.WithLabelValues(order.Asset).Add(float64(escrowDelta))
	}
	if fee > 0 {
		metrics.FeesCollectedTotal.WithLabelValues(order.Asset).Add(float64(fee))
	}
	s.auditor.Record(ctx, &audit.Event{
		Kind:         audit.KindOrderFilled,
		Actor:        caller,
		Subject:      order.ID,
		Asset:        order.Asset,
		Amount:       order.Amount - fee,
		FiatCurrency: order.FiatCurrency,
		FiatAmount:   order.FiatAmount,
		Detail:       fmt.Sprintf("fee=%d", fee),
	})
	return order, nil
}

// settleValue moves the order's value at fill time.
//
// BUY: amount-fee leaves custody for the treasury; the fee stays behind
// in the custody pool as collected revenue.
// SELL: the seller's pre-authorized balance moves directly to the
// treasury, with the fee pulled separately into custody. A revoked or
// insufficient pre-authorization surfaces as the transfer error; the
// order stays open for a later retry or refund.
func (s *Service) settleValue(ctx context.Context, order *Order, treasury string, fee int64) error {
	switch order.Direction {
	case Buy:
		return s.transfer.Push(ctx, treasury, order.Asset, order.Amount-fee, order.ID)
	case Sell:
		if fee > 0 {
			if err := s.transfer.Pull(ctx, order.Account, order.Asset, fee, order.ID); err != nil {
				return err
			}
		}
		if err := s.transfer.PullTo(ctx, order.Account, treasury, order.Asset, order.Amount-fee, order.ID); err != nil {
			if fee > 0 {
				_ = s.transfer.Push(ctx, order.Account, order.Asset, fee, order.ID)
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("unknown direction %q", order.Direction)
}

// Refund unwinds an unfilled order back to its account. Allowed for the
// owning account or a settle-capable operator, and only once the refund
// boundary has passed (inclusive), guaranteeing the operator a window to
// complete the fiat leg first.
func (s *Service) Refund(ctx context.Context, caller, id, reason string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	caller = strings.ToLower(caller)
	if caller != order.Account && !s.gate.CanSettle(ctx, caller) {
		return nil, ErrUnauthorized
	}

	return s.unwind(ctx, order, caller, reason, StatusRefunded, order.MinRefundAt)
}

// Expire unwinds an order past its expiry boundary. Permissionless: the
// time condition is objectively true for any caller, so this is a
// cleanup transition anyone may trigger.
func (s *Service) Expire(ctx context.Context, caller, id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != StatusPending {
		return nil, ErrInvalidState
	}

	return s.unwind(ctx, order, strings.ToLower(caller), "expired", StatusExpired, order.ExpireAt)
}

// unwind is the shared refund/expire transition. Caller authorization
// and status preconditions are checked by the wrappers; the time gate
// and the escrow return happen here.
func (s *Service) unwind(ctx context.Context, order *Order, caller, reason string, terminal Status, boundary time.Time) (*Order, error) {
	if order.Status != StatusPending && order.Status != StatusApproved {
		return nil, ErrInvalidState
	}
	if s.now().Before(boundary) {
		return nil, ErrTooEarly
	}

	snapshot := *order
	order.Status = terminal
	order.Notes = reason

	escrowDelta := int64(0)
	if order.Direction == Buy {
		escrowDelta = -order.Amount
	}
	if err := s.store.Update(ctx, order, escrowDelta); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if order.Direction == Buy {
		if err := s.transfer.Push(ctx, order.Account, order.Asset, order.Amount, order.ID); err != nil {
			if revertErr := s.store.Update(ctx, &snapshot, -escrowDelta); revertErr != nil {
				return nil, fmt.Errorf("transfer failed and rollback failed (requires manual resolution): %v: %w", revertErr, err)
			}
			metrics.TransferFailuresTotal.Inc()
			return nil, err
		}
	}

	kind := audit.KindOrderRefunded
	if terminal == StatusExpired {
		kind = audit.KindOrderExpired
	}
	metrics.OrdersTotal.WithLabelValues(string(order.Direction), string(terminal)).Inc()
	if escrowDelta != 0 {
		metrics.EscrowBalance.WithLabelValues(order.Asset).Add(float64(escrowDelta))
	}
	s.auditor.Record(ctx, &audit.Event{
		Kind:         kind,
		Actor:        caller,
		Subject:      order.ID,
		Asset:        order.Asset,
		Amount:       order.Amount,
		FiatCurrency: order.FiatCurrency,
		FiatAmount:   order.FiatAmount,
		Detail:       reason,
	})
	return order, nil
}

// UpdateMetadata replaces an order's payment instructions. Owning
// account only, pending orders only. Marks the order edited, which
// permanently blocks the delete convenience.
func (s *Service) UpdateMetadata(ctx context.Context, caller, id, metadata string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(metadata) > s.maxMetadata {
		return nil, ErrMetadataTooBig
	}

	order, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.ToLower(caller) != order.Account {
		return nil, ErrUnauthorized
	}
	if order.Status != StatusPending {
		return nil, ErrInvalidState
	}

	order.Metadata = metadata
	order.MetadataEdited = true
	if err := s.store.Update(ctx, order, 0); err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindOrderUpdated,
		Actor:   order.Account,
		Subject: order.ID,
		Detail:  "metadata updated",
	})
	return order, nil
}

// Delete removes a pending order record that was never edited and holds
// no escrow. BUY orders hold custody funds and must unwind through
// refund or expiry instead, so value can never be orphaned.
func (s *Service) Delete(ctx context.Context, caller, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if strings.ToLower(caller) != order.Account {
		return ErrUnauthorized
	}
	if order.Status != StatusPending {
		return ErrInvalidState
	}
	if order.MetadataEdited {
		return ErrMetadataEdited
	}
	if order.holdsEscrow() {
		return ErrEscrowUndeleted
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindOrderDeleted,
		Actor:   order.Account,
		Subject: order.ID,
		Asset:   order.Asset,
	})
	return nil
}

// Get returns an order by ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.store.Get(ctx, id)
}

// ListByAccount returns an account's orders, newest first.
func (s *Service) ListByAccount(ctx context.Context, account string, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListByAccount(ctx, strings.ToLower(account), limit)
}

// ListPending returns open orders awaiting settlement.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListPending(ctx, limit)
}

// EscrowBalances returns the current custody balance per asset.
func (s *Service) EscrowBalances(ctx context.Context) (map[string]int64, error) {
	return s.store.EscrowBalances(ctx)
}
