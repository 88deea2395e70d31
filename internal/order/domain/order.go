package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentPix    PaymentMethod = "pix"
	PaymentOthers PaymentMethod = "others"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPix, PaymentOthers:
		return true
	}
	return false
}

var (
	ErrInvalidOrder   = errors.New("invalid order")
	ErrOrderNotFound  = errors.New("order not found")
	ErrLineNotFound   = errors.New("order line not found")
	ErrOrderNotOpen   = errors.New("order is not open")
	ErrEmptyOrder     = errors.New("order has no lines")
	ErrTabAlreadyOpen = errors.New("customer already has an open order")
	// ErrContention signals a lock or transaction conflict on the order or
	// one of its stock rows. The operation did not commit; callers may retry.
	ErrContention = errors.New("order contention, retry")
)

// Order is a comanda: a running tab opened per customer visit. It moves
// through exactly one transition, open -> closed, at checkout.
type Order struct {
	ID            string
	StaffID       string
	CustomerRef   string
	Note          string
	Status        Status
	PaymentMethod PaymentMethod
	Lines         []Line
	Total         decimal.Decimal
	OpenedAt      time.Time
	ClosedAt      *time.Time
}

// Line is a single item on a comanda. UnitPrice is snapshotted at the moment
// the line is added so later catalog price edits never change history.
type Line struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	AddedAt     time.Time
}

func (l Line) Subtotal() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

func NewOrder(id, staffID, customerRef, note string, now time.Time) Order {
	return Order{
		ID:          id,
		StaffID:     staffID,
		CustomerRef: customerRef,
		Note:        note,
		Status:      StatusOpen,
		Total:       decimal.Zero,
		OpenedAt:    now,
	}
}

func (o Order) IsOpen() bool { return o.Status == StatusOpen }

// ComputeTotal derives the running total from the line set. While the order
// is open this is the only source of truth; checkout freezes the result.
func (o Order) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// StatusChange is one append-only audit row recorded whenever an order
// enters a new status.
type StatusChange struct {
	OrderID   string
	Status    Status
	Note      string
	ChangedAt time.Time
}

// CheckoutSummary is what checkout hands back once the order is closed.
type CheckoutSummary struct {
	OrderID         string          `json:"order_id"`
	Total           decimal.Decimal `json:"total"`
	DurationSeconds int64           `json:"duration_seconds"`
	LineCount       int             `json:"line_count"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ClosedAt        time.Time       `json:"closed_at"`
}
