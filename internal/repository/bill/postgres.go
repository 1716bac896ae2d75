package bill

import (
	"context"
	"errors"
	"time"

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

const billColumns = `id::text, username, cart_ref, total, status, payment_method, approved_by, updated_at`

func (r *postgresRepo) ApplyDelta(ctx context.Context, username string, amount float64, cartRef string) (*domain.Bill, error) {
	// One retry: a concurrent first-create can hit the partial unique index,
	// after which the update path applies.
	for attempt := 0; attempt < 2; attempt++ {
		out, err := r.applyDeltaOnce(ctx, username, amount, cartRef)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return out, err
	}
	return nil, domain.ErrUpstream
}

func (r *postgresRepo) applyDeltaOnce(ctx context.Context, username string, amount float64, cartRef string) (*domain.Bill, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var b domain.Bill
	err = tx.QueryRow(ctx, `
SELECT `+billColumns+`
FROM bills
WHERE username = $1 AND status = 'IN_PROGRESS'
FOR UPDATE
`, username).Scan(&b.ID, &b.Username, &b.CartRef, &b.Total, &b.Status, &b.PaymentMethod, &b.ApprovedBy, &b.UpdatedAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if amount <= 0 {
			return nil, domain.ErrNoOpenBill
		}
		var created domain.Bill
		err = tx.QueryRow(ctx, `
INSERT INTO bills (username, cart_ref, total, status, payment_method)
VALUES ($1, $2, $3, 'IN_PROGRESS', 'PENDING')
RETURNING `+billColumns+`
`, username, cartRef, amount).Scan(
			&created.ID, &created.Username, &created.CartRef, &created.Total,
			&created.Status, &created.PaymentMethod, &created.ApprovedBy, &created.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return &created, nil
	case err != nil:
		return nil, err
	}

	newTotal := b.Total + amount
	if newTotal <= 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM bills WHERE id = $1`, b.ID); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE bills SET total = $1, updated_at = $2 WHERE id = $3`, newTotal, now, b.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	b.Total = newTotal
	b.UpdatedAt = now
	return &b, nil
}

func (r *postgresRepo) GetOpenByUsername(ctx context.Context, username string) (*domain.Bill, error) {
	const q = `
SELECT ` + billColumns + `
FROM bills
WHERE username = $1 AND status = 'IN_PROGRESS'
`
	return r.scan(r.pool.QueryRow(ctx, q, username))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Bill, error) {
	const q = `
SELECT ` + billColumns + `
FROM bills
WHERE id = $1
`
	return r.scan(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) MarkPaid(ctx context.Context, id string, method domain.PaymentMethod, approvedBy string) (*domain.Bill, error) {
	const q = `
UPDATE bills
SET status = 'PAID', payment_method = $1, approved_by = $2, updated_at = $3
WHERE id = $4 AND status <> 'PAID'
RETURNING ` + billColumns + `
`
	out, err := r.scan(r.pool.QueryRow(ctx, q, method, approvedBy, time.Now().UTC(), id))
	if errors.Is(err, domain.ErrNotFound) {
		// Distinguish a missing bill from an already-paid one.
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return nil, domain.ErrAlreadyPaid
		}
		return nil, domain.ErrNotFound
	}
	return out, err
}

func (r *postgresRepo) scan(row pgx.Row) (*domain.Bill, error) {
	var b domain.Bill
	err := row.Scan(&b.ID, &b.Username, &b.CartRef, &b.Total, &b.Status, &b.PaymentMethod, &b.ApprovedBy, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
