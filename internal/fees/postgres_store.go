package fees

import (
	"context"
	"database/sql"
)

// PostgresStore persists fee schedules in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed fee store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Set(ctx context.Context, cfg *Config) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO fee_configs (asset, buy_bps, sell_bps, min_fee, max_fee, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (asset) DO UPDATE SET
			buy_bps = $2, sell_bps = $3, min_fee = $4, max_fee = $5,
			updated_at = $6, updated_by = $7`,
		cfg.Asset, cfg.BuyBps, cfg.SellBps, cfg.MinFee, cfg.MaxFee,
		cfg.UpdatedAt, cfg.UpdatedBy,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, asset string) (*Config, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT asset, buy_bps, sell_bps, min_fee, max_fee, updated_at, updated_by
		FROM fee_configs WHERE asset = $1`, asset)

	var cfg Config
	err := row.Scan(&cfg.Asset, &cfg.BuyBps, &cfg.SellBps, &cfg.MinFee, &cfg.MaxFee,
		&cfg.UpdatedAt, &cfg.UpdatedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]*Config, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT asset, buy_bps, sell_bps, min_fee, max_fee, updated_at, updated_by
		FROM fee_configs ORDER BY asset`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Config
	for rows.Next() {
		var cfg Config
		if err := rows.Scan(&cfg.Asset, &cfg.BuyBps, &cfg.SellBps, &cfg.MinFee, &cfg.MaxFee,
			&cfg.UpdatedAt, &cfg.UpdatedBy); err != nil {
			return nil, err
		}
		result = append(result, &cfg)
	}
	return result, rows.Err()
}
