package principal

import (
	"context"

	"smartpos/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, p domain.Principal) (*domain.Principal, error)
	GetByUsername(ctx context.Context, space domain.Space, username string) (*domain.Principal, error)
	CountByRole(ctx context.Context, space domain.Space, role domain.Role) (int, error)
	Delete(ctx context.Context, space domain.Space, username string) error
}
