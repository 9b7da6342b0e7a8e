// Package assets maintains the whitelist of asset identifiers eligible
// for escrow. The chain-native asset uses the NativeAsset sentinel and is
// supported by default at system initialization.
package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Olisehgenesis/lait/internal/audit"
)

// NativeAsset is the sentinel identifier for the chain's native asset.
const NativeAsset = "native"

var (
	ErrUnauthorized     = errors.New("not authorized to change asset support")
	ErrUnsupportedAsset = errors.New("asset is not supported for escrow")
	ErrInvalidAsset     = errors.New("asset identifier cannot be empty")
)

// Store persists the support flags.
type Store interface {
	SetSupported(ctx context.Context, asset string, supported bool) error
	IsSupported(ctx context.Context, asset string) (bool, error)
	List(ctx context.Context) (map[string]bool, error)
}

// Gate is the authorization check the registry consults on mutation.
type Gate interface {
	IsActiveAdmin(ctx context.Context, caller string) bool
}

// Auditor records support changes on the audit trail.
type Auditor interface {
	Record(ctx context.Context, event *audit.Event)
}

// Registry is the asset support whitelist.
type Registry struct {
	store   Store
	gate    Gate
	auditor Auditor
}

// NewRegistry creates the registry and marks the native asset supported.
func NewRegistry(ctx context.Context, store Store, gate Gate, auditor Auditor) (*Registry, error) {
	if err := store.SetSupported(ctx, NativeAsset, true); err != nil {
		return nil, fmt.Errorf("failed to initialize native asset support: %w", err)
	}
	return &Registry{store: store, gate: gate, auditor: auditor}, nil
}

// SetSupported toggles support for an asset. Active-admin gated.
func (r *Registry) SetSupported(ctx context.Context, caller, asset string, supported bool) error {
	if !r.gate.IsActiveAdmin(ctx, caller) {
		return ErrUnauthorized
	}
	asset = normalize(asset)
	if asset == "" {
		return ErrInvalidAsset
	}

	if err := r.store.SetSupported(ctx, asset, supported); err != nil {
		return fmt.Errorf("failed to set asset support: %w", err)
	}

	r.auditor.Record(ctx, &audit.Event{
		Kind:    audit.KindAssetSupportChanged,
		Actor:   strings.ToLower(caller),
		Subject: asset,
		Asset:   asset,
		Detail:  fmt.Sprintf("supported=%t", supported),
	})
	return nil
}

// IsSupported reports whether the asset may be escrowed.
func (r *Registry) IsSupported(ctx context.Context, asset string) (bool, error) {
	return r.store.IsSupported(ctx, normalize(asset))
}

// Require returns ErrUnsupportedAsset unless the asset is whitelisted.
func (r *Registry) Require(ctx context.Context, asset string) error {
	ok, err := r.IsSupported(ctx, asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, asset)
	}
	return nil
}

// List returns all known assets with their support flags.
func (r *Registry) List(ctx context.Context) (map[string]bool, error) {
	return r.store.List(ctx)
}

func normalize(asset string) string {
	return strings.ToLower(strings.TrimSpace(asset))
}
