package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mvcruz/comanda/internal/stock/domain"
)

// Service is the stock ledger. All quantity mutation funnels through here so
// the non-negativity invariant is enforced on a single code path.
type Service struct {
	log  *slog.Logger
	repo Repository
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// Reserve atomically removes quantity from a product's on-hand stock.
// Fails with ErrInsufficientStock when the product cannot cover it.
func (s *Service) Reserve(ctx context.Context, productID string, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	if err := s.repo.Reserve(ctx, productID, quantity); err != nil {
		return err
	}
	s.log.Info("stock reserved", "product_id", productID, "quantity", quantity.String())
	return nil
}

// Release puts a previously reserved quantity back. Used when a line is
// removed from an open order or a failed checkout is compensated.
func (s *Service) Release(ctx context.Context, productID string, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	if err := s.repo.Release(ctx, productID, quantity); err != nil {
		return err
	}
	s.log.Info("stock released", "product_id", productID, "quantity", quantity.String())
	return nil
}

// Replenish adds delivered goods to the ledger. Same contract as Release but
// kept separate so audit logs distinguish compensation from restocking.
func (s *Service) Replenish(ctx context.Context, productID string, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return domain.ErrInvalidQuantity
	}
	if err := s.repo.Release(ctx, productID, quantity); err != nil {
		return err
	}
	s.log.Info("stock replenished", "product_id", productID, "quantity", quantity.String())
	return nil
}

func (s *Service) Current(ctx context.Context, productID string) (decimal.Decimal, error) {
	return s.repo.Current(ctx, productID)
}

func (s *Service) Snapshot(ctx context.Context) ([]domain.Level, error) {
	return s.repo.Snapshot(ctx)
}
