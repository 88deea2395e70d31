package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderOpened = "OrderOpened"
	EventItemAdded   = "ItemAdded"
	EventItemRemoved = "ItemRemoved"
	EventOrderClosed = "OrderClosed"
)

type OrderOpened struct {
	OrderID     string    `json:"order_id"`
	StaffID     string    `json:"staff_id"`
	CustomerRef string    `json:"customer_ref"`
	OpenedAt    time.Time `json:"opened_at"`
}

type ItemAdded struct {
	OrderID   string          `json:"order_id"`
	LineID    string          `json:"line_id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type ItemRemoved struct {
	OrderID   string          `json:"order_id"`
	LineID    string          `json:"line_id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type OrderClosed struct {
	OrderID         string          `json:"order_id"`
	StaffID         string          `json:"staff_id"`
	Total           decimal.Decimal `json:"total"`
	DurationSeconds int64           `json:"duration_seconds"`
	LineCount       int             `json:"line_count"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ClosedAt        time.Time       `json:"closed_at"`
}
