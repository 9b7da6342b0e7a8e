package assets

import (
	"context"
	"database/sql"
)

// PostgresStore persists asset support flags in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed asset store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) SetSupported(ctx context.Context, asset string, supported bool) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO supported_assets (asset, supported, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (asset) DO UPDATE SET supported = $2, updated_at = NOW()`,
		asset, supported,
	)
	return err
}

func (p *PostgresStore) IsSupported(ctx context.Context, asset string) (bool, error) {
	var supported bool
	err := p.db.QueryRowContext(ctx,
		`SELECT supported FROM supported_assets WHERE asset = $1`, asset,
	).Scan(&supported)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return supported, nil
}

func (p *PostgresStore) List(ctx context.Context) (map[string]bool, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT asset, supported FROM supported_assets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var asset string
		var supported bool
		if err := rows.Scan(&asset, &supported); err != nil {
			return nil, err
		}
		out[asset] = supported
	}
	return out, rows.Err()
}
