package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mvcruz/comanda/internal/order/domain"
)

type orderDTO struct {
	ID          string          `json:"id"`
	CustomerRef string          `json:"customer_ref"`
	StaffID     string          `json:"staff_id"`
	Status      string          `json:"status"`
	Note        string          `json:"note,omitempty"`
	Payment     string          `json:"payment_method,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Lines       []lineDTO       `json:"lines"`
	OpenedAt    time.Time       `json:"opened_at"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
}

type lineDTO struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	AddedAt     time.Time       `json:"added_at"`
}

func toOrderDTO(o domain.Order) orderDTO {
	dto := orderDTO{
		ID:          o.ID,
		CustomerRef: o.CustomerRef,
		StaffID:     o.StaffID,
		Status:      string(o.Status),
		Note:        o.Note,
		Payment:     string(o.PaymentMethod),
		Total:       o.Total,
		Lines:       make([]lineDTO, 0, len(o.Lines)),
		OpenedAt:    o.OpenedAt,
		ClosedAt:    o.ClosedAt,
	}
	for _, l := range o.Lines {
		dto.Lines = append(dto.Lines, toLineDTO(l))
	}
	return dto
}

func toLineDTO(l domain.Line) lineDTO {
	return lineDTO{
		ID:          l.ID,
		ProductID:   l.ProductID,
		ProductName: l.ProductName,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Subtotal:    l.Subtotal(),
		AddedAt:     l.AddedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
