package cartline

import (
	"context"

	"smartpos/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, line domain.CartLine) (*domain.CartLine, error)
	GetByID(ctx context.Context, id string) (*domain.CartLine, error)
	ListByUsername(ctx context.Context, username string) ([]domain.CartLine, error)
	Update(ctx context.Context, line domain.CartLine) (*domain.CartLine, error)
	Delete(ctx context.Context, id string) error
}
