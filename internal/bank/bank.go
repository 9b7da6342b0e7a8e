// Package bank defines the external value-transfer capability the order
// ledger relies on, and an in-memory implementation for demo mode.
//
// The ledger only ever sees the Transfer interface: every operation is
// atomic, either fully completing or leaving balances untouched. The
// implementation never receives a handle back into the order ledger, so
// no transfer can recursively invoke ledger-mutating entry points.
package bank

import (
	"context"
	"errors"
)

// ErrTransferFailed wraps every failed value movement.
var ErrTransferFailed = errors.New("value transfer failed")

// Transfer moves value between accounts and custody.
type Transfer interface {
	// Pull moves amount of asset from an account into custody. It
	// succeeds only if the account has pre-authorized at least that
	// amount for custody pulls.
	Pull(ctx context.Context, from, asset string, amount int64, reference string) error

	// Push moves amount of asset out of custody to a destination account.
	Push(ctx context.Context, to, asset string, amount int64, reference string) error

	// PullTo moves amount of asset directly from a pre-authorized
	// account to a destination account, bypassing custody. Used at
	// sell-side settlement.
	PullTo(ctx context.Context, from, to, asset string, amount int64, reference string) error
}
