package product

import (
	"context"
	"errors"

	"smartpos/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	const q = `
INSERT INTO products (barcode, name, price, weight, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id::text, created_at
`
	out := p
	err := r.pool.QueryRow(ctx, q, p.Barcode, p.Name, p.Price, p.Weight, p.CreatedBy).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	const q = `
SELECT id::text, barcode, name, price, weight, created_by, created_at
FROM products
WHERE barcode = $1
`
	var p domain.Product
	err := r.pool.QueryRow(ctx, q, barcode).Scan(
		&p.ID, &p.Barcode, &p.Name, &p.Price, &p.Weight, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
