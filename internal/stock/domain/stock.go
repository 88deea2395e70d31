package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStockNotFound     = errors.New("stock entry not found")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	// ErrContention signals a lost lock wait on a stock row. Nothing was
	// decremented; callers may retry.
	ErrContention = errors.New("stock contention, retry")
)

// Entry is the on-hand quantity for a single product. Mutation happens only
// through the ledger's reserve/release/replenish operations so the
// non-negativity invariant holds on every path.
type Entry struct {
	ProductID string
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}

// Level is one row of the stock snapshot exposed to the statistics surface.
type Level struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitKind    string          `json:"unit_kind"`
	Quantity    decimal.Decimal `json:"quantity"`
}
