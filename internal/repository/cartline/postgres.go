package cartline

import (
	"context"
	"errors"

	"smartpos/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, line domain.CartLine) (*domain.CartLine, error) {
	const q = `
INSERT INTO cart_lines (username, barcode, name, quantity, weight, price)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text, created_at
`
	out := line
	err := r.pool.QueryRow(ctx, q, line.Username, line.Barcode, line.Name, line.Quantity, line.Weight, line.Price).
		Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.CartLine, error) {
	const q = `
SELECT id::text, username, barcode, name, quantity, weight, price, created_at
FROM cart_lines
WHERE id = $1
`
	var line domain.CartLine
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&line.ID, &line.Username, &line.Barcode, &line.Name, &line.Quantity,
		&line.Weight, &line.Price, &line.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

func (r *postgresRepo) ListByUsername(ctx context.Context, username string) ([]domain.CartLine, error) {
	const q = `
SELECT id::text, username, barcode, name, quantity, weight, price, created_at
FROM cart_lines
WHERE username = $1
ORDER BY created_at
`
	rows, err := r.pool.Query(ctx, q, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ID, &line.Username, &line.Barcode, &line.Name, &line.Quantity,
			&line.Weight, &line.Price, &line.CreatedAt,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *postgresRepo) Update(ctx context.Context, line domain.CartLine) (*domain.CartLine, error) {
	const q = `
UPDATE cart_lines
SET name = $1, quantity = $2, weight = $3, price = $4
WHERE id = $5
RETURNING id::text, username, barcode, name, quantity, weight, price, created_at
`
	var out domain.CartLine
	err := r.pool.QueryRow(ctx, q, line.Name, line.Quantity, line.Weight, line.Price, line.ID).Scan(
		&out.ID, &out.Username, &out.Barcode, &out.Name, &out.Quantity,
		&out.Weight, &out.Price, &out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
