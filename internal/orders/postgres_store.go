package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore is a Postgres-backed Store. Order mutations and their
// escrow balance adjustments commit in one transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed order store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const orderColumns = `id, account, asset, amount, fiat_currency, fiat_amount,
	metadata, direction, status, created_at, min_refund_at, expire_at,
	filled_by, filled_at, notes, metadata_edited, limit_day`

func (p *PostgresStore) Create(ctx context.Context, order *Order, escrowDelta int64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, order.ID, order.Account, order.Asset, order.Amount, order.FiatCurrency,
		order.FiatAmount, order.Metadata, order.Direction, order.Status,
		order.CreatedAt, order.MinRefundAt, order.ExpireAt,
		nullString(order.FilledBy), order.FilledAt, order.Notes,
		order.MetadataEdited, order.LimitDay)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := applyEscrowDelta(ctx, tx, order.Asset, escrowDelta); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Order, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (p *PostgresStore) Update(ctx context.Context, order *Order, escrowDelta int64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $2, metadata = $3, filled_by = $4, filled_at = $5,
		    notes = $6, metadata_edited = $7
		WHERE id = $1
	`, order.ID, order.Status, order.Metadata, nullString(order.FilledBy),
		order.FilledAt, order.Notes, order.MetadataEdited)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}

	if err := applyEscrowDelta(ctx, tx, order.Asset, escrowDelta); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (p *PostgresStore) ListByAccount(ctx context.Context, account string, limit int) ([]*Order, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE account = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, account, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (p *PostgresStore) ListPending(ctx context.Context, limit int) ([]*Order, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status IN ('pending', 'approved')
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (p *PostgresStore) ListExpirable(ctx context.Context, before time.Time, limit int) ([]*Order, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE status = 'pending' AND expire_at <= $1
		ORDER BY expire_at ASC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expirable orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (p *PostgresStore) EscrowBalances(ctx context.Context) (map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT asset, amount FROM escrow_balances WHERE amount <> 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query escrow balances: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var asset string
		var amount int64
		if err := rows.Scan(&asset, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan escrow balance: %w", err)
		}
		out[asset] = amount
	}
	return out, rows.Err()
}

func applyEscrowDelta(ctx context.Context, tx *sql.Tx, asset string, delta int64) error {
	if delta == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO escrow_balances (asset, amount)
		VALUES ($1, $2)
		ON CONFLICT (asset) DO UPDATE SET amount = escrow_balances.amount + $2
	`, asset, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust escrow balance: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var order Order
	var filledBy sql.NullString
	var filledAt sql.NullTime
	err := row.Scan(&order.ID, &order.Account, &order.Asset, &order.Amount,
		&order.FiatCurrency, &order.FiatAmount, &order.Metadata,
		&order.Direction, &order.Status, &order.CreatedAt,
		&order.MinRefundAt, &order.ExpireAt, &filledBy, &filledAt,
		&order.Notes, &order.MetadataEdited, &order.LimitDay)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	if filledBy.Valid {
		order.FilledBy = filledBy.String
	}
	if filledAt.Valid {
		t := filledAt.Time
		order.FilledAt = &t
	}
	return &order, nil
}

func scanOrders(rows *sql.Rows) ([]*Order, error) {
	var out []*Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}
