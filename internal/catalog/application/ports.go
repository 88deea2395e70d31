package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mvcruz/comanda/internal/catalog/domain"
)

type Repository interface {
	// Create persists the product and seeds its stock entry in one transaction.
	Create(ctx context.Context, p domain.Product, initialStock decimal.Decimal) error
	Update(ctx context.Context, p domain.Product) error
	GetByID(ctx context.Context, id string) (domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	// HasOrderLines reports whether any order line references the product.
	HasOrderLines(ctx context.Context, id string) (bool, error)
}
