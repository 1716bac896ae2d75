package principal

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

func (r *postgresRepo) Create(ctx context.Context, p domain.Principal) (*domain.Principal, error) {
	const q = `
INSERT INTO principals (space, username, password_hash, email, first_name, last_name, nic, phone_number, role, registered_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING id::text, registered_at
`
	out := p
	err := r.pool.QueryRow(ctx, q,
		p.Space, p.Username, p.PasswordHash, p.Email, p.FirstName, p.LastName,
		p.NIC, p.PhoneNumber, p.Role, p.RegisteredBy,
	).Scan(&out.ID, &out.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) GetByUsername(ctx context.Context, space domain.Space, username string) (*domain.Principal, error) {
	const q = `
SELECT id::text, space, username, password_hash, email, first_name, last_name, nic, phone_number, role, registered_by, registered_at
FROM principals
WHERE space = $1 AND username = $2
`
	var p domain.Principal
	err := r.pool.QueryRow(ctx, q, space, username).Scan(
		&p.ID, &p.Space, &p.Username, &p.PasswordHash, &p.Email, &p.FirstName,
		&p.LastName, &p.NIC, &p.PhoneNumber, &p.Role, &p.RegisteredBy, &p.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepo) CountByRole(ctx context.Context, space domain.Space, role domain.Role) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM principals WHERE space = $1 AND role = $2`, space, role).Scan(&count)
	return count, err
}

func (r *postgresRepo) Delete(ctx context.Context, space domain.Space, username string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM principals WHERE space = $1 AND username = $2`, space, username)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
