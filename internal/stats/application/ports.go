package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
)

// ClosedOrder is the slice of an order the statistics engine needs: totals
// and timing of tabs that actually closed inside the window.
type ClosedOrder struct {
	ID            string
	StaffID       string
	Total         decimal.Decimal
	PaymentMethod string
	OpenedAt      time.Time
	ClosedAt      time.Time
}

// OrderHistory serves closed orders inside [from, to]. An empty staffID means
// no staff filter. Open orders never qualify; their spend is unrealized.
type OrderHistory interface {
	ClosedBetween(ctx context.Context, from, to time.Time, staffID string) ([]ClosedOrder, error)
}

type StockReader interface {
	Snapshot(ctx context.Context) ([]stockdomain.Level, error)
}
