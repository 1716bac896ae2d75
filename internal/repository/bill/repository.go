package bill

import (
	"context"

	"smartpos/internal/domain"
)

type Repository interface {
	// ApplyDelta applies a signed amount to the principal's open bill inside
	// one transaction. A nil bill with nil error means the total collapsed to
	// zero or below and the bill was deleted. A negative amount with no open
	// bill returns domain.ErrNoOpenBill.
	ApplyDelta(ctx context.Context, username string, amount float64, cartRef string) (*domain.Bill, error)
	GetOpenByUsername(ctx context.Context, username string) (*domain.Bill, error)
	GetByID(ctx context.Context, id string) (*domain.Bill, error)
	MarkPaid(ctx context.Context, id string, method domain.PaymentMethod, approvedBy string) (*domain.Bill, error)
}
