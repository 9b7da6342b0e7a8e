package audit

import (
	"context"
	"database/sql"
)

// PostgresStore persists audit events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Append(ctx context.Context, e *Event) error {
	return p.db.QueryRowContext(ctx, `
		INSERT INTO audit_events (
			kind, actor, subject, asset, amount,
			fiat_currency, fiat_amount, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		string(e.Kind), e.Actor, e.Subject, e.Asset, e.Amount,
		e.FiatCurrency, e.FiatAmount, e.Detail, e.CreatedAt,
	).Scan(&e.ID)
}

func (p *PostgresStore) List(ctx context.Context, subject string, kind Kind, limit int) ([]*Event, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, kind, actor, subject, asset, amount,
		       fiat_currency, fiat_amount, detail, created_at
		FROM audit_events
		WHERE ($1 = '' OR subject = $1)
		  AND ($2 = '' OR kind = $2)
		ORDER BY id DESC
		LIMIT $3`,
		subject, string(kind), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		var e Event
		var k string
		if err := rows.Scan(&e.ID, &k, &e.Actor, &e.Subject, &e.Asset, &e.Amount,
			&e.FiatCurrency, &e.FiatAmount, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = Kind(k)
		result = append(result, &e)
	}
	return result, rows.Err()
}
