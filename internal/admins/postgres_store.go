package admins

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore persists admin records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed admin store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const adminColumns = `address, name, description, active, can_settle, can_configure,
		added_at, added_by, orders_filled, fiat_volume`

func (p *PostgresStore) Create(ctx context.Context, a *Admin) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO admins (`+adminColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		strings.ToLower(a.Address), a.Name, a.Description, a.Active,
		a.CanSettle, a.CanConfigure, a.AddedAt, a.AddedBy,
		a.OrdersFilled, a.FiatVolume,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrAdminExists
	}
	return err
}

func (p *PostgresStore) Get(ctx context.Context, address string) (*Admin, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE address = $1`,
		strings.ToLower(address),
	)

	var a Admin
	err := row.Scan(&a.Address, &a.Name, &a.Description, &a.Active,
		&a.CanSettle, &a.CanConfigure, &a.AddedAt, &a.AddedBy,
		&a.OrdersFilled, &a.FiatVolume)
	if err == sql.ErrNoRows {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (p *PostgresStore) Update(ctx context.Context, a *Admin) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE admins SET
			name = $1, description = $2, active = $3,
			can_settle = $4, can_configure = $5,
			orders_filled = $6, fiat_volume = $7
		WHERE address = $8`,
		a.Name, a.Description, a.Active,
		a.CanSettle, a.CanConfigure,
		a.OrdersFilled, a.FiatVolume,
		strings.ToLower(a.Address),
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, activeOnly bool) ([]*Admin, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+adminColumns+` FROM admins
		WHERE ($1 = false OR active = true)
		ORDER BY added_at`,
		activeOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.Address, &a.Name, &a.Description, &a.Active,
			&a.CanSettle, &a.CanConfigure, &a.AddedAt, &a.AddedBy,
			&a.OrdersFilled, &a.FiatVolume); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}
