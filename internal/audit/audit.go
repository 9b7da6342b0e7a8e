// Package audit provides the append-only event stream for the ledger.
//
// Every state transition (order lifecycle, admin changes, configuration
// changes) emits exactly one immutable event carrying the acting identity,
// the affected record, and the relevant amounts. The stream feeds off-system
// reconciliation and the realtime UI; it is never rewritten.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Olisehgenesis/lait/internal/metrics"
)

var ErrEventNotFound = errors.New("audit event not found")

// Kind classifies an audit event.
type Kind string

const (
	KindOrderCreated        Kind = "order_created"
	KindOrderApproved       Kind = "order_approved"
	KindOrderFilled         Kind = "order_filled"
	KindOrderRefunded       Kind = "order_refunded"
	KindOrderExpired        Kind = "order_expired"
	KindOrderUpdated        Kind = "order_updated"
	KindOrderDeleted        Kind = "order_deleted"
	KindAdminAdded          Kind = "admin_added"
	KindAdminRemoved        Kind = "admin_removed"
	KindAdminUpdated        Kind = "admin_updated"
	KindAssetSupportChanged Kind = "asset_support_changed"
	KindRateUpdated         Kind = "rate_updated"
	KindConfigChanged       Kind = "config_changed"
	KindPauseChanged        Kind = "pause_changed"
)

// Event is a single immutable audit record.
type Event struct {
	ID           int64     `json:"id"`
	Kind         Kind      `json:"kind"`
	Actor        string    `json:"actor"`             // acting identity (account or admin)
	Subject      string    `json:"subject,omitempty"` // order ID, admin address, asset, setting key
	Asset        string    `json:"asset,omitempty"`
	Amount       int64     `json:"amount,omitempty"`       // base units of Asset
	FiatCurrency string    `json:"fiatCurrency,omitempty"` // ISO code
	FiatAmount   int64     `json:"fiatAmount,omitempty"`   // minor units
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event *Event) error
	List(ctx context.Context, subject string, kind Kind, limit int) ([]*Event, error)
}

// Sink receives events as they are recorded (e.g. the websocket hub).
type Sink interface {
	Publish(event *Event)
}

// Recorder appends events to the store and fans them out to sinks.
// Append failures are logged, never propagated: the ledger mutation has
// already committed and must not be unwound for a trail write.
type Recorder struct {
	store  Store
	sinks  []Sink
	logger *slog.Logger
}

// NewRecorder creates a recorder over the given store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// AddSink registers an additional fan-out target.
func (r *Recorder) AddSink(s Sink) *Recorder {
	r.sinks = append(r.sinks, s)
	return r
}

// Record persists the event and fans it out.
func (r *Recorder) Record(ctx context.Context, event *Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if err := r.store.Append(ctx, event); err != nil {
		r.logger.Error("failed to append audit event",
			"kind", event.Kind, "subject", event.Subject, "error", err)
	}
	metrics.AuditEventsTotal.WithLabelValues(string(event.Kind)).Inc()
	for _, s := range r.sinks {
		s.Publish(event)
	}
}

// List returns recent events, optionally filtered by subject and kind.
func (r *Recorder) List(ctx context.Context, subject string, kind Kind, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.store.List(ctx, subject, kind, limit)
}
