package limits

import (
	"context"
	"database/sql"
)

// PostgresStore persists daily spend counters in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed daily spend store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Reserve upserts the counter, the WHERE clause on the update arm keeps
// check and increment in one statement.
func (p *PostgresStore) Reserve(ctx context.Context, account string, day int64, amount, limit int64) error {
	if amount > limit {
		return ErrLimitExceeded
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO daily_spend (account, day, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (account, day) DO UPDATE
			SET amount = daily_spend.amount + $3
			WHERE daily_spend.amount + $3 <= $4`,
		account, day, amount, limit,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLimitExceeded
	}
	return nil
}

func (p *PostgresStore) Release(ctx context.Context, account string, day int64, amount int64) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE daily_spend
		SET amount = GREATEST(amount - $3, 0)
		WHERE account = $1 AND day = $2`,
		account, day, amount,
	)
	return err
}

func (p *PostgresStore) Spent(ctx context.Context, account string, day int64) (int64, error) {
	var amount int64
	err := p.db.QueryRowContext(ctx,
		`SELECT amount FROM daily_spend WHERE account = $1 AND day = $2`,
		account, day,
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return amount, nil
}
