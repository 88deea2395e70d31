package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogdomain "github.com/mvcruz/comanda/internal/catalog/domain"
	"github.com/mvcruz/comanda/internal/order/domain"
	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
	"github.com/mvcruz/comanda/pkg/tracing"
)

// Service is the order engine: it owns the open -> closed lifecycle of a
// comanda and keeps line additions, stock reservations and totals consistent.
type Service struct {
	log     *slog.Logger
	tx      TxManager
	repo    Repository
	ledger  StockLedger
	catalog Catalog
}

func NewService(log *slog.Logger, tx TxManager, repo Repository, ledger StockLedger, catalog Catalog) *Service {
	return &Service{log: log, tx: tx, repo: repo, ledger: ledger, catalog: catalog}
}

// OpenTab starts a new comanda for a customer reference (table number, name).
// A customer reference can hold at most one open tab at a time.
func (s *Service) OpenTab(ctx context.Context, staffID, customerRef, note string) (domain.Order, error) {
	if customerRef == "" {
		return domain.Order{}, domain.ErrInvalidOrder
	}
	o := domain.NewOrder(uuid.NewString(), staffID, customerRef, note, time.Now().UTC())

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Insert(ctx, o); err != nil {
			return err
		}
		if err := s.repo.AppendStatusChange(ctx, domain.StatusChange{
			OrderID: o.ID, Status: domain.StatusOpen, Note: "created", ChangedAt: o.OpenedAt,
		}); err != nil {
			return err
		}
		return s.enqueue(ctx, domain.EventOrderOpened, o.ID, domain.OrderOpened{
			OrderID: o.ID, StaffID: o.StaffID, CustomerRef: o.CustomerRef, OpenedAt: o.OpenedAt,
		})
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.log.Info("tab opened", "order_id", o.ID, "customer_ref", customerRef, "staff_id", staffID)
	return o, nil
}

// AddItem appends a line to an open order. The product's stock is reserved
// and its current price snapshotted in the same transaction, so a successful
// return means goods left inventory and the line is durable; any failure
// means neither happened.
func (s *Service) AddItem(ctx context.Context, orderID, productID string, quantity decimal.Decimal) (domain.Line, error) {
	if !quantity.IsPositive() {
		return domain.Line{}, stockdomain.ErrInvalidQuantity
	}

	var line domain.Line
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.IsOpen() {
			return domain.ErrOrderNotOpen
		}
		p, err := s.catalog.Get(ctx, productID)
		if err != nil {
			return err
		}
		if p.UnitKind == catalogdomain.UnitKindEach && !quantity.IsInteger() {
			return stockdomain.ErrInvalidQuantity
		}
		if err := s.ledger.Reserve(ctx, productID, quantity); err != nil {
			return err
		}
		line = domain.Line{
			ID:          uuid.NewString(),
			OrderID:     o.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    quantity,
			UnitPrice:   p.UnitPrice,
			AddedAt:     time.Now().UTC(),
		}
		if err := s.repo.InsertLine(ctx, line); err != nil {
			return err
		}
		return s.enqueue(ctx, domain.EventItemAdded, o.ID, domain.ItemAdded{
			OrderID: o.ID, LineID: line.ID, ProductID: p.ID, Quantity: quantity, UnitPrice: p.UnitPrice,
		})
	})
	if err != nil {
		return domain.Line{}, err
	}
	s.log.Info("item added", "order_id", orderID, "line_id", line.ID, "product_id", productID,
		"quantity", quantity.String())
	return line, nil
}

// RemoveItem drops a line from an open order and puts its quantity back in
// stock, a net-zero stock delta with the original addition.
func (s *Service) RemoveItem(ctx context.Context, orderID, lineID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.IsOpen() {
			return domain.ErrOrderNotOpen
		}
		var line *domain.Line
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				line = &o.Lines[i]
				break
			}
		}
		if line == nil {
			return domain.ErrLineNotFound
		}
		if err := s.repo.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		if err := s.ledger.Release(ctx, line.ProductID, line.Quantity); err != nil {
			return err
		}
		return s.enqueue(ctx, domain.EventItemRemoved, o.ID, domain.ItemRemoved{
			OrderID: o.ID, LineID: line.ID, ProductID: line.ProductID, Quantity: line.Quantity,
		})
	})
	if err != nil {
		return err
	}
	s.log.Info("item removed", "order_id", orderID, "line_id", lineID)
	return nil
}

// Checkout is the terminal transition: it freezes the total, stamps the close
// time and seals the order against further mutation. Stock is untouched here;
// every reservation already happened at AddItem time.
func (s *Service) Checkout(ctx context.Context, orderID string, payment domain.PaymentMethod, note string) (domain.CheckoutSummary, error) {
	if !payment.Valid() {
		return domain.CheckoutSummary{}, domain.ErrInvalidOrder
	}

	var summary domain.CheckoutSummary
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.IsOpen() {
			return domain.ErrOrderNotOpen
		}
		if len(o.Lines) == 0 {
			return domain.ErrEmptyOrder
		}

		closedAt := time.Now().UTC()
		o.Status = domain.StatusClosed
		o.ClosedAt = &closedAt
		o.PaymentMethod = payment
		o.Total = o.ComputeTotal()
		if note != "" {
			o.Note = note
		}
		if err := s.repo.Close(ctx, o); err != nil {
			return err
		}
		if err := s.repo.AppendStatusChange(ctx, domain.StatusChange{
			OrderID: o.ID, Status: domain.StatusClosed, Note: note, ChangedAt: closedAt,
		}); err != nil {
			return err
		}

		summary = domain.CheckoutSummary{
			OrderID:         o.ID,
			Total:           o.Total,
			DurationSeconds: int64(closedAt.Sub(o.OpenedAt).Seconds()),
			LineCount:       len(o.Lines),
			PaymentMethod:   payment,
			ClosedAt:        closedAt,
		}
		return s.enqueue(ctx, domain.EventOrderClosed, o.ID, domain.OrderClosed{
			OrderID:         o.ID,
			StaffID:         o.StaffID,
			Total:           o.Total,
			DurationSeconds: summary.DurationSeconds,
			LineCount:       summary.LineCount,
			PaymentMethod:   payment,
			ClosedAt:        closedAt,
		})
	})
	if err != nil {
		return domain.CheckoutSummary{}, err
	}
	s.log.Info("tab closed", "order_id", orderID, "total", summary.Total.String(),
		"duration_s", summary.DurationSeconds, "lines", summary.LineCount)
	return summary, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (domain.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) ListOpen(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	return s.repo.ListOpen(ctx, clampLimit(limit), clampOffset(offset))
}

func (s *Service) ListClosed(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	return s.repo.ListClosed(ctx, clampLimit(limit), clampOffset(offset))
}

func (s *Service) enqueue(ctx context.Context, eventType, orderID string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.repo.EnqueueEvent(ctx, eventType, orderID, payload, tracing.Traceparent(ctx))
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
