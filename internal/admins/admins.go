// Package admins manages permissioned operator identities.
//
// Model:
//   - A single immutable owner identity, fixed at startup.
//   - Any number of admin records, each with an active flag and per-admin
//     capability flags (settle, configure).
//   - The owner is self-bootstrapped as an admin record and can never be
//     deactivated or removed.
//
// The Gate type exposes the pure authorization predicates used as guards
// at the top of every privileged ledger operation.
package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Olisehgenesis/lait/internal/audit"
)

var (
	ErrAdminNotFound  = errors.New("admin not found")
	ErrAdminExists    = errors.New("admin already exists")
	ErrUnauthorized   = errors.New("not authorized for this admin operation")
	ErrOwnerImmutable = errors.New("owner admin record cannot be changed")
	ErrInvalidName    = errors.New("admin name cannot be empty")
)

// Capability is a toggleable admin permission.
type Capability string

const (
	CapSettle    Capability = "settle"    // fill/refund orders
	CapConfigure Capability = "configure" // fees, limits, assets, rates, pause
)

// Admin is a permissioned operator record.
type Admin struct {
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Active       bool      `json:"active"`
	CanSettle    bool      `json:"canSettle"`
	CanConfigure bool      `json:"canConfigure"`
	AddedAt      time.Time `json:"addedAt"`
	AddedBy      string    `json:"addedBy"`

	// Settlement statistics, updated on each fill.
	OrdersFilled int64 `json:"ordersFilled"`
	FiatVolume   int64 `json:"fiatVolume"` // minor units, cumulative
}

// Has reports whether the admin carries the given capability flag.
func (a *Admin) Has(cap Capability) bool {
	switch cap {
	case CapSettle:
		return a.CanSettle
	case CapConfigure:
		return a.CanConfigure
	}
	return false
}

// Store persists admin records.
type Store interface {
	Create(ctx context.Context, admin *Admin) error
	Get(ctx context.Context, address string) (*Admin, error)
	Update(ctx context.Context, admin *Admin) error
	List(ctx context.Context, activeOnly bool) ([]*Admin, error)
}

// Auditor records admin mutations on the audit trail.
type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

// Registry implements admin CRUD with owner-enforced invariants.
type Registry struct {
	owner   string
	store   Store
	auditor Auditor

	// Global capability-class toggles. An admin's per-record flag only
	// grants the capability while the class toggle is on.
	mu            sync.RWMutex
	settleEnabled bool
	confEnabled   bool
}

// NewRegistry creates a registry and bootstraps the owner's admin record.
func NewRegistry(ctx context.Context, owner string, store Store, auditor Auditor) (*Registry, error) {
	if owner == "" {
		return nil, errors.New("owner address is required")
	}
	r := &Registry{
		owner:         strings.ToLower(owner),
		store:         store,
		auditor:       auditor,
		settleEnabled: true,
		confEnabled:   true,
	}

	// Owner bootstrap is idempotent across restarts.
	if _, err := store.Get(ctx, r.owner); errors.Is(err, ErrAdminNotFound) {
		now := time.Now()
		err := store.Create(ctx, &Admin{
			Address:      r.owner,
			Name:         "owner",
			Description:  "system owner",
			Active:       true,
			CanSettle:    true,
			CanConfigure: true,
			AddedAt:      now,
			AddedBy:      r.owner,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to bootstrap owner admin: %w", err)
		}
	} else if err != nil {
		return nil, err
	}

	return r, nil
}

// Owner returns the owner identity.
func (r *Registry) Owner() string {
	return r.owner
}

// Add registers a new admin. Owner-only.
func (r *Registry) Add(ctx context.Context, caller, address, name, description string, caps []Capability) (*Admin, error) {
	if !r.IsOwner(caller) {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	address = strings.ToLower(address)

	if _, err := r.store.Get(ctx, address); err == nil {
		return nil, ErrAdminExists
	} else if !errors.Is(err, ErrAdminNotFound) {
		return nil, err
	}

	admin := &Admin{
		Address:     address,
		Name:        name,
		Description: description,
		Active:      true,
		AddedAt:     time.Now(),
		AddedBy:     strings.ToLower(caller),
	}
	for _, c := range caps {
		switch c {
		case CapSettle:
			admin.CanSettle = true
		case CapConfigure:
			admin.CanConfigure = true
		}
	}

	if err := r.store.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	r.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindAdminAdded,
		Actor:   strings.ToLower(caller),
		Subject: address,
		Detail:  fmt.Sprintf("name=%s settle=%t configure=%t", name, admin.CanSettle, admin.CanConfigure),
	})
	return admin, nil
}

// Remove marks an admin inactive. Owner-only; admin records are never
// hard-deleted so the audit trail keeps resolving identities.
func (r *Registry) Remove(ctx context.Context, caller, address string) error {
	if !r.IsOwner(caller) {
		return ErrUnauthorized
	}
	address = strings.ToLower(address)
	if address == r.owner {
		return ErrOwnerImmutable
	}

	admin, err := r.store.Get(ctx, address)
	if err != nil {
		return err
	}

	admin.Active = false
	if err := r.store.Update(ctx, admin); err != nil {
		return fmt.Errorf("failed to deactivate admin: %w", err)
	}

	r.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindAdminRemoved,
		Actor:   strings.ToLower(caller),
		Subject: address,
	})
	return nil
}

// Update changes an admin's display name and description.
// Allowed for the owner or the admin themself.
func (r *Registry) Update(ctx context.Context, caller, address, name, description string) (*Admin, error) {
	caller = strings.ToLower(caller)
	address = strings.ToLower(address)
	if !r.IsOwner(caller) && caller != address {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}

	admin, err := r.store.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	admin.Name = name
	admin.Description = description
	if err := r.store.Update(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to update admin: %w", err)
	}

	r.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindAdminUpdated,
		Actor:   caller,
		Subject: address,
		Detail:  "name=" + name,
	})
	return admin, nil
}

// SetCapability toggles a per-admin capability flag. Owner-only.
func (r *Registry) SetCapability(ctx context.Context, caller, address string, cap Capability, on bool) error {
	if !r.IsOwner(caller) {
		return ErrUnauthorized
	}

	admin, err := r.store.Get(ctx, strings.ToLower(address))
	if err != nil {
		return err
	}

	switch cap {
	case CapSettle:
		admin.CanSettle = on
	case CapConfigure:
		admin.CanConfigure = on
	default:
		return fmt.Errorf("unknown capability %q", cap)
	}

	if err := r.store.Update(ctx, admin); err != nil {
		return fmt.Errorf("failed to set capability: %w", err)
	}

	r.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindAdminUpdated,
		Actor:   strings.ToLower(caller),
		Subject: admin.Address,
		Detail:  fmt.Sprintf("capability %s=%t", cap, on),
	})
	return nil
}

// SetStatus toggles an admin's active flag. Owner-only; the owner's own
// record is protected.
func (r *Registry) SetStatus(ctx context.Context, caller, address string, active bool) error {
	if !r.IsOwner(caller) {
		return ErrUnauthorized
	}
	address = strings.ToLower(address)
	if address == r.owner {
		return ErrOwnerImmutable
	}

	admin, err := r.store.Get(ctx, address)
	if err != nil {
		return err
	}

	admin.Active = active
	if err := r.store.Update(ctx, admin); err != nil {
		return fmt.Errorf("failed to set admin status: %w", err)
	}

	r.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindAdminUpdated,
		Actor:   strings.ToLower(caller),
		Subject: address,
		Detail:  fmt.Sprintf("active=%t", active),
	})
	return nil
}

// SetClassEnabled toggles a global capability class. Owner-only.
// While a class is off, no admin (other than the owner) holds it.
func (r *Registry) SetClassEnabled(ctx context.Context, caller string, cap Capability, enabled bool) error {
	if !r.IsOwner(caller) {
		return ErrUnauthorized
	}

	r.mu.Lock()
	switch cap {
	case CapSettle:
		r.settleEnabled = enabled
	case CapConfigure:
		r.confEnabled = enabled
	default:
		r.mu.Unlock()
		return fmt.Errorf("unknown capability %q", cap)
	}
	r.mu.Unlock()

	r.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindConfigChanged,
		Actor:   strings.ToLower(caller),
		Subject: "capability_class:" + string(cap),
		Detail:  fmt.Sprintf("enabled=%t", enabled),
	})
	return nil
}

func (r *Registry) classEnabled(cap Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch cap {
	case CapSettle:
		return r.settleEnabled
	case CapConfigure:
		return r.confEnabled
	}
	return false
}

// Get returns an admin record.
func (r *Registry) Get(ctx context.Context, address string) (*Admin, error) {
	return r.store.Get(ctx, strings.ToLower(address))
}

// List returns admin records.
func (r *Registry) List(ctx context.Context, activeOnly bool) ([]*Admin, error) {
	return r.store.List(ctx, activeOnly)
}

// RecordFill updates an admin's settlement statistics.
func (r *Registry) RecordFill(ctx context.Context, address string, fiatAmount int64) error {
	admin, err := r.store.Get(ctx, strings.ToLower(address))
	if err != nil {
		return err
	}
	admin.OrdersFilled++
	admin.FiatVolume += fiatAmount
	return r.store.Update(ctx, admin)
}

// -----------------------------------------------------------------------------
// Authorization predicates (the gate)
// -----------------------------------------------------------------------------

// IsOwner reports whether the caller is the single owner identity.
func (r *Registry) IsOwner(caller string) bool {
	return strings.ToLower(caller) == r.owner
}

// IsActiveAdmin reports whether the caller is the owner or an active admin.
func (r *Registry) IsActiveAdmin(ctx context.Context, caller string) bool {
	if r.IsOwner(caller) {
		return true
	}
	admin, err := r.store.Get(ctx, strings.ToLower(caller))
	if err != nil {
		return false
	}
	return admin.Active
}

// Authorized reports whether the caller may exercise the capability:
// owner always, otherwise an active admin holding the flag while the
// capability class is globally enabled.
func (r *Registry) Authorized(ctx context.Context, caller string, cap Capability) bool {
	if r.IsOwner(caller) {
		return true
	}
	if !r.classEnabled(cap) {
		return false
	}
	admin, err := r.store.Get(ctx, strings.ToLower(caller))
	if err != nil {
		return false
	}
	return admin.Active && admin.Has(cap)
}
