package session

import (
	"context"
	"time"

	"smartpos/internal/domain"
)

type Repository interface {
	// Upsert replaces the principal's session slot. Replacing the slot is
	// what revokes every previously issued token for that principal.
	Upsert(ctx context.Context, s domain.Session) error
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	GetByPrincipal(ctx context.Context, principalID string) (*domain.Session, error)
	// Revoke marks the slot holding token as revoked and expired.
	Revoke(ctx context.Context, token string) error
	// Touch advances the inactivity clock.
	Touch(ctx context.Context, principalID string, at time.Time) error
}
