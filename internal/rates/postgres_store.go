package rates

import (
	"context"
	"database/sql"
)

// PostgresStore persists rate records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed rate store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Set(ctx context.Context, r *Rate) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO exchange_rates (asset, currency, rate, decimals, active, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (asset, currency) DO UPDATE SET
			rate = $3, decimals = $4, active = $5, updated_at = $6, updated_by = $7`,
		r.Asset, r.Currency, r.Rate, r.Decimals, r.Active, r.UpdatedAt, r.UpdatedBy,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, asset, currency string) (*Rate, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT asset, currency, rate, decimals, active, updated_at, updated_by
		FROM exchange_rates WHERE asset = $1 AND currency = $2`,
		asset, currency)

	var r Rate
	err := row.Scan(&r.Asset, &r.Currency, &r.Rate, &r.Decimals, &r.Active, &r.UpdatedAt, &r.UpdatedBy)
	if err == sql.ErrNoRows {
		return nil, ErrRateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (p *PostgresStore) List(ctx context.Context, asset string) ([]*Rate, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT asset, currency, rate, decimals, active, updated_at, updated_by
		FROM exchange_rates
		WHERE ($1 = '' OR asset = $1)
		ORDER BY asset, currency`, asset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Rate
	for rows.Next() {
		var r Rate
		if err := rows.Scan(&r.Asset, &r.Currency, &r.Rate, &r.Decimals, &r.Active,
			&r.UpdatedAt, &r.UpdatedBy); err != nil {
			return nil, err
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}
