package application

import (
	"context"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/mvcruz/comanda/internal/catalog/domain"
	"github.com/mvcruz/comanda/internal/order/domain"
)

// TxManager scopes one engine operation to a single transaction. Every
// repository and ledger call made with the derived context shares it, which
// is what makes addItem's reserve-and-append a single atomic unit.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository interface {
	Insert(ctx context.Context, o domain.Order) error
	// GetByID loads the order with its lines. Open orders get their total
	// derived from the lines; closed orders carry the frozen total.
	GetByID(ctx context.Context, id string) (domain.Order, error)
	// GetForUpdate locks the order row for the rest of the transaction.
	// Lost lock races surface as domain.ErrContention.
	GetForUpdate(ctx context.Context, id string) (domain.Order, error)
	InsertLine(ctx context.Context, l domain.Line) error
	DeleteLine(ctx context.Context, lineID string) error
	Close(ctx context.Context, o domain.Order) error
	ListOpen(ctx context.Context, limit, offset int) ([]domain.Order, error)
	ListClosed(ctx context.Context, limit, offset int) ([]domain.Order, error)
	AppendStatusChange(ctx context.Context, c domain.StatusChange) error
	// EnqueueEvent writes an outbox row inside the current transaction.
	EnqueueEvent(ctx context.Context, eventType, aggregateID string, payload []byte, traceparent string) error
}

// StockLedger is the reserve/release contract of the stock context.
type StockLedger interface {
	Reserve(ctx context.Context, productID string, quantity decimal.Decimal) error
	Release(ctx context.Context, productID string, quantity decimal.Decimal) error
}

// Catalog resolves products for price snapshots.
type Catalog interface {
	Get(ctx context.Context, id string) (catalogdomain.Product, error)
}
