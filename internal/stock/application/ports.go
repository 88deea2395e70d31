package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mvcruz/comanda/internal/stock/domain"
)

// Repository is the ledger's storage contract. Reserve must be atomic with
// respect to concurrent reservations on the same product: the implementation
// decrements only if the resulting quantity stays non-negative.
type Repository interface {
	Init(ctx context.Context, productID string, quantity decimal.Decimal) error
	Reserve(ctx context.Context, productID string, quantity decimal.Decimal) error
	Release(ctx context.Context, productID string, quantity decimal.Decimal) error
	Current(ctx context.Context, productID string) (decimal.Decimal, error)
	Snapshot(ctx context.Context) ([]domain.Level, error)
}
