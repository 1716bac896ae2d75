package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smartpos/internal/domain"
	"smartpos/internal/events"
	billrepo "smartpos/internal/repository/bill"

	"go.uber.org/zap"
)

// BackupClient mirrors paid bills to the backup collaborator.
type BackupClient interface {
	SaveBill(ctx context.Context, b domain.Bill) error
}

// Service maintains one authoritative running total per principal. Mutations
// for the same principal are serialized through a keyed mutex so two
// concurrent deltas can never lose an update; the repository's transaction is
// the second line of defense for multi-process deployments.
type Service struct {
	repo      billrepo.Repository
	backup    BackupClient
	publisher events.Publisher
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the bill aggregator.
func New(repo billrepo.Repository, backup BackupClient, publisher events.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		backup:    backup,
		publisher: publisher,
		logger:    logger,
		locks:     map[string]*sync.Mutex{},
	}
}

func (s *Service) lockFor(username string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[username]
	if !ok {
		l = &sync.Mutex{}
		s.locks[username] = l
	}
	return l
}

// ApplyDelta applies one signed price adjustment to the principal's open bill.
// No open bill and a positive amount creates one; a resulting total at or
// below zero deletes the bill; a negative amount with no bill is a caller
// error. The returned bill is nil when the bill was deleted.
func (s *Service) ApplyDelta(ctx context.Context, username string, amount float64, cartRef string) (*domain.Bill, error) {
	if username == "" {
		return nil, errors.New("username required")
	}

	l := s.lockFor(username)
	l.Lock()
	defer l.Unlock()

	b, err := s.repo.ApplyDelta(ctx, username, amount, cartRef)
	if err != nil {
		return nil, err
	}
	if b == nil {
		s.logger.Info("bill deleted, total collapsed", zap.String("username", username))
		return nil, nil
	}
	s.logger.Info("bill total updated",
		zap.String("username", username),
		zap.Float64("delta", amount),
		zap.Float64("total", b.Total))
	return b, nil
}

// Pay finalizes the bill and mirrors it to the backup store. The mirror call
// is synchronous and its failure propagates, but the local payment has
// already committed and is not rolled back.
func (s *Service) Pay(ctx context.Context, billID, username string, method domain.PaymentMethod, approvedBy string) (*domain.Bill, error) {
	b, err := s.repo.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if b.Username != username {
		// Ownership mismatch reads as absence; the bill id is not leaked.
		return nil, domain.ErrNotFound
	}
	if b.Status == domain.BillPaid {
		return nil, domain.ErrAlreadyPaid
	}
	if approvedBy == "" {
		approvedBy = username
	}

	paid, err := s.repo.MarkPaid(ctx, billID, method, approvedBy)
	if err != nil {
		return nil, err
	}

	events.PublishAsync(s.publisher, s.logger, paid.Username, events.BillPaid{
		EventID:       events.NewEventID(),
		BillID:        paid.ID,
		Username:      paid.Username,
		Total:         paid.Total,
		PaymentMethod: string(paid.PaymentMethod),
		Timestamp:     time.Now().UTC(),
	})

	if s.backup != nil {
		if err := s.backup.SaveBill(ctx, *paid); err != nil {
			s.logger.Error("backup mirror failed after local commit",
				zap.String("billId", paid.ID), zap.Error(err))
			return paid, fmt.Errorf("mirror paid bill: %w", errors.Join(domain.ErrUpstream, err))
		}
	}
	return paid, nil
}

// View returns the caller's single IN_PROGRESS bill.
func (s *Service) View(ctx context.Context, username string) (*domain.Bill, error) {
	return s.repo.GetOpenByUsername(ctx, username)
}
