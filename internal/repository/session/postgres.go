package session

import (
	"context"
	"errors"
	"time"

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

func (r *postgresRepo) Upsert(ctx context.Context, s domain.Session) error {
	const q = `
INSERT INTO sessions (principal_id, space, token, revoked, expired, issued_at, last_seen_at)
VALUES ($1, $2, $3, FALSE, FALSE, $4, $4)
ON CONFLICT (principal_id) DO UPDATE
SET token = EXCLUDED.token,
    revoked = FALSE,
    expired = FALSE,
    issued_at = EXCLUDED.issued_at,
    last_seen_at = EXCLUDED.last_seen_at
`
	_, err := r.pool.Exec(ctx, q, s.PrincipalID, s.Space, s.Token, s.IssuedAt)
	return err
}

func (r *postgresRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	const q = `
SELECT principal_id::text, space, token, revoked, expired, issued_at, last_seen_at
FROM sessions
WHERE token = $1
`
	return r.scan(r.pool.QueryRow(ctx, q, token))
}

func (r *postgresRepo) GetByPrincipal(ctx context.Context, principalID string) (*domain.Session, error) {
	const q = `
SELECT principal_id::text, space, token, revoked, expired, issued_at, last_seen_at
FROM sessions
WHERE principal_id = $1
`
	return r.scan(r.pool.QueryRow(ctx, q, principalID))
}

func (r *postgresRepo) Revoke(ctx context.Context, token string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE sessions SET revoked = TRUE, expired = TRUE WHERE token = $1`, token)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Touch(ctx context.Context, principalID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE sessions SET last_seen_at = $1 WHERE principal_id = $2`, at, principalID)
	return err
}

func (r *postgresRepo) scan(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.PrincipalID, &s.Space, &s.Token, &s.Revoked, &s.Expired, &s.IssuedAt, &s.LastSeenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
