package cart

import (
	"context"
	"errors"
	"fmt"
	"math"

	"smartpos/internal/domain"
	cartrepo "smartpos/internal/repository/cartline"

	"go.uber.org/zap"
)

// ErrLedgerSync marks a cart write that committed while the ledger update
// failed; cart and ledger may have diverged until reconciled.
var ErrLedgerSync = errors.New("ledger synchronization failed")

// weightEpsilon is the tolerance below which a supplied weight is treated as
// the catalog reference weight and quantity pricing applies.
const weightEpsilon = 1e-4

type catalog interface {
	GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
}

type billUpdater interface {
	ApplyDelta(ctx context.Context, username string, amount float64, cartRef string) (*domain.Bill, error)
}

// Service translates cart-line mutations into signed deltas for the ledger
// and keeps the cart's price basis consistent with the catalog.
type Service struct {
	repo    cartrepo.Repository
	catalog catalog
	ledger  billUpdater
	logger  *zap.Logger
}

// New creates the coordinator.
func New(repo cartrepo.Repository, cat catalog, ledger billUpdater, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, catalog: cat, ledger: ledger, logger: logger}
}

// LineInput carries a requested mutation.
type LineInput struct {
	ID       string  `json:"id,omitempty"`
	Barcode  string  `json:"barcode"`
	Quantity int     `json:"quantity"`
	Weight   float64 `json:"weight"`
}

// price applies the two mutually exclusive pricing modes: quantity-based by
// default, weight-proportional when the supplied weight differs materially
// from the catalog reference weight.
func price(p *domain.Product, quantity int, weight float64) (total float64, usedWeight float64) {
	if quantity <= 0 {
		quantity = 1
	}
	if weight > 0 && p.Weight > 0 && math.Abs(weight-p.Weight) > weightEpsilon {
		return p.Price * (weight / p.Weight), weight
	}
	return p.Price * float64(quantity), p.Weight
}

// Add resolves the product, persists the line and sends +total to the ledger.
func (s *Service) Add(ctx context.Context, username string, in LineInput) (*domain.CartLine, error) {
	if in.Barcode == "" {
		return nil, errors.New("barcode required")
	}
	product, err := s.catalog.GetByBarcode(ctx, in.Barcode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %q: %w", in.Barcode, domain.ErrNotFound)
		}
		return nil, err
	}

	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	total, usedWeight := price(product, quantity, in.Weight)

	line, err := s.repo.Create(ctx, domain.CartLine{
		Username: username,
		Barcode:  product.Barcode,
		Name:     product.Name,
		Quantity: quantity,
		Weight:   usedWeight,
		Price:    total,
	})
	if err != nil {
		return nil, err
	}

	if err := s.syncLedger(ctx, username, total); err != nil {
		return line, err
	}
	return line, nil
}

// Update re-prices the line against the new quantity/weight and sends the
// difference between the new and old line totals, so the line's contribution
// to the bill is replaced rather than stacked.
func (s *Service) Update(ctx context.Context, username string, in LineInput) (*domain.CartLine, error) {
	existing, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if existing.Username != username {
		return nil, domain.ErrForbidden
	}

	barcode := existing.Barcode
	if barcode == "" {
		barcode = existing.Name
	}
	product, err := s.catalog.GetByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %q: %w", barcode, domain.ErrNotFound)
		}
		return nil, err
	}

	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	total, usedWeight := price(product, quantity, in.Weight)

	updated, err := s.repo.Update(ctx, domain.CartLine{
		ID:       existing.ID,
		Username: username,
		Barcode:  existing.Barcode,
		Name:     product.Name,
		Quantity: quantity,
		Weight:   usedWeight,
		Price:    total,
	})
	if err != nil {
		return nil, err
	}

	if err := s.syncLedger(ctx, username, total-existing.Price); err != nil {
		return updated, err
	}
	return updated, nil
}

// Delete removes the line and subtracts its last-applied total from the bill.
func (s *Service) Delete(ctx context.Context, username, lineID string) error {
	existing, err := s.repo.GetByID(ctx, lineID)
	if err != nil {
		return err
	}
	if existing.Username != username {
		return domain.ErrForbidden
	}
	if err := s.repo.Delete(ctx, lineID); err != nil {
		return err
	}
	return s.syncLedger(ctx, username, -existing.Price)
}

// List returns the caller's cart lines.
func (s *Service) List(ctx context.Context, username string) ([]domain.CartLine, error) {
	return s.repo.ListByUsername(ctx, username)
}

// Get returns one owned line.
func (s *Service) Get(ctx context.Context, username, lineID string) (*domain.CartLine, error) {
	line, err := s.repo.GetByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.Username != username {
		return nil, domain.ErrNotFound
	}
	return line, nil
}

// syncLedger forwards a signed delta. The cart write has already committed;
// a ledger failure is surfaced as ErrLedgerSync without rolling it back.
func (s *Service) syncLedger(ctx context.Context, username string, delta float64) error {
	if delta == 0 {
		return nil
	}
	if _, err := s.ledger.ApplyDelta(ctx, username, delta, username); err != nil {
		s.logger.Error("bill update failed, cart and ledger diverged",
			zap.String("username", username),
			zap.Float64("delta", delta),
			zap.Error(err))
		return fmt.Errorf("%w: %w", ErrLedgerSync, err)
	}
	return nil
}
