package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/mvcruz/comanda/internal/catalog/domain"
	"github.com/mvcruz/comanda/internal/order/domain"
	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	orders map[string]*domain.Order
	events []string
}

func newMemRepo() *memRepo {
	return &memRepo{orders: make(map[string]*domain.Order)}
}

func (r *memRepo) Insert(_ context.Context, o domain.Order) error {
	for _, existing := range r.orders {
		if existing.CustomerRef == o.CustomerRef && existing.IsOpen() {
			return domain.ErrTabAlreadyOpen
		}
	}
	cp := o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	out := *o
	out.Total = out.ComputeTotal()
	return out, nil
}

func (r *memRepo) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *memRepo) InsertLine(_ context.Context, l domain.Line) error {
	o, ok := r.orders[l.OrderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Lines = append(o.Lines, l)
	return nil
}

func (r *memRepo) DeleteLine(_ context.Context, lineID string) error {
	for _, o := range r.orders {
		for i, l := range o.Lines {
			if l.ID == lineID {
				o.Lines = append(o.Lines[:i], o.Lines[i+1:]...)
				return nil
			}
		}
	}
	return domain.ErrLineNotFound
}

func (r *memRepo) Close(_ context.Context, o domain.Order) error {
	stored, ok := r.orders[o.ID]
	if !ok || !stored.IsOpen() {
		return domain.ErrOrderNotOpen
	}
	stored.Status = domain.StatusClosed
	stored.PaymentMethod = o.PaymentMethod
	stored.Total = o.Total
	stored.ClosedAt = o.ClosedAt
	return nil
}

func (r *memRepo) ListOpen(_ context.Context, limit, offset int) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if o.IsOpen() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memRepo) ListClosed(_ context.Context, limit, offset int) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if !o.IsOpen() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memRepo) AppendStatusChange(_ context.Context, _ domain.StatusChange) error { return nil }

func (r *memRepo) EnqueueEvent(_ context.Context, eventType, _ string, _ []byte, _ string) error {
	r.events = append(r.events, eventType)
	return nil
}

type memLedger struct {
	levels map[string]decimal.Decimal
}

func (l *memLedger) Reserve(_ context.Context, productID string, q decimal.Decimal) error {
	have, ok := l.levels[productID]
	if !ok {
		return stockdomain.ErrStockNotFound
	}
	if have.LessThan(q) {
		return stockdomain.ErrInsufficientStock
	}
	l.levels[productID] = have.Sub(q)
	return nil
}

func (l *memLedger) Release(_ context.Context, productID string, q decimal.Decimal) error {
	l.levels[productID] = l.levels[productID].Add(q)
	return nil
}

type memCatalog struct {
	products map[string]catalogdomain.Product
}

func (c *memCatalog) Get(_ context.Context, id string) (catalogdomain.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return catalogdomain.Product{}, catalogdomain.ErrProductNotFound
	}
	return p, nil
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService() (*Service, *memRepo, *memLedger, *memCatalog) {
	repo := newMemRepo()
	ledger := &memLedger{levels: map[string]decimal.Decimal{
		"beer":  decimal.NewFromInt(10),
		"steak": decimal.NewFromInt(5),
	}}
	catalog := &memCatalog{products: map[string]catalogdomain.Product{
		"beer": {
			ID: "beer", Name: "Beer", UnitKind: catalogdomain.UnitKindEach,
			UnitPrice: price("6.00"), Active: true,
		},
		"steak": {
			ID: "steak", Name: "Steak", UnitKind: catalogdomain.UnitKindKilogram,
			UnitPrice: price("40.00"), Active: true,
		},
	}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, passthroughTx{}, repo, ledger, catalog), repo, ledger, catalog
}

func TestOpenAddCheckout(t *testing.T) {
	svc, _, ledger, _ := newTestService()
	ctx := context.Background()

	o, err := svc.OpenTab(ctx, "staff-1", "table-3", "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.AddItem(ctx, o.ID, "beer", decimal.NewFromInt(2)); err != nil {
		t.Fatalf("add beer: %v", err)
	}
	if _, err := svc.AddItem(ctx, o.ID, "steak", price("0.5")); err != nil {
		t.Fatalf("add steak: %v", err)
	}

	summary, err := svc.Checkout(ctx, o.ID, domain.PaymentPix, "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	// 2 * 6.00 + 0.5 * 40.00
	if want := price("32.00"); !summary.Total.Equal(want) {
		t.Fatalf("total = %s, want %s", summary.Total, want)
	}
	if summary.LineCount != 2 {
		t.Fatalf("line count = %d, want 2", summary.LineCount)
	}
	if !ledger.levels["beer"].Equal(decimal.NewFromInt(8)) {
		t.Fatalf("beer stock = %s, want 8", ledger.levels["beer"])
	}
}

func TestAddItemOnClosedOrder(t *testing.T) {
	svc, _, ledger, _ := newTestService()
	ctx := context.Background()

	o, _ := svc.OpenTab(ctx, "staff-1", "table-1", "")
	if _, err := svc.AddItem(ctx, o.ID, "beer", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Checkout(ctx, o.ID, domain.PaymentCash, ""); err != nil {
		t.Fatalf("checkout: %v", err)
	}

	before := ledger.levels["beer"]
	_, err := svc.AddItem(ctx, o.ID, "beer", decimal.NewFromInt(1))
	if !errors.Is(err, domain.ErrOrderNotOpen) {
		t.Fatalf("err = %v, want ErrOrderNotOpen", err)
	}
	if !ledger.levels["beer"].Equal(before) {
		t.Fatalf("stock mutated on failed add: %s -> %s", before, ledger.levels["beer"])
	}
}

func TestCheckoutEmptyOrder(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	o, _ := svc.OpenTab(ctx, "staff-1", "table-2", "")
	if _, err := svc.Checkout(ctx, o.ID, domain.PaymentCash, ""); !errors.Is(err, domain.ErrEmptyOrder) {
		t.Fatalf("err = %v, want ErrEmptyOrder", err)
	}
}

func TestCheckoutInvalidPayment(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	o, _ := svc.OpenTab(ctx, "staff-1", "table-2", "")
	if _, err := svc.Checkout(ctx, o.ID, "barter", ""); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("err = %v, want ErrInvalidOrder", err)
	}
}

func TestRemoveItemRestoresStock(t *testing.T) {
	svc, _, ledger, _ := newTestService()
	ctx := context.Background()

	o, _ := svc.OpenTab(ctx, "staff-1", "table-4", "")
	line, err := svc.AddItem(ctx, o.ID, "beer", decimal.NewFromInt(3))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !ledger.levels["beer"].Equal(decimal.NewFromInt(7)) {
		t.Fatalf("stock after add = %s, want 7", ledger.levels["beer"])
	}

	if err := svc.RemoveItem(ctx, o.ID, line.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !ledger.levels["beer"].Equal(decimal.NewFromInt(10)) {
		t.Fatalf("stock after remove = %s, want 10", ledger.levels["beer"])
	}

	got, _ := svc.Get(ctx, o.ID)
	if !got.Total.IsZero() {
		t.Fatalf("total after remove = %s, want 0", got.Total)
	}
}

func TestPriceSnapshotSurvivesCatalogEdit(t *testing.T) {
	svc, _, _, catalog := newTestService()
	ctx := context.Background()

	o, _ := svc.OpenTab(ctx, "staff-1", "table-5", "")
	if _, err := svc.AddItem(ctx, o.ID, "beer", decimal.NewFromInt(2)); err != nil {
		t.Fatalf("add: %v", err)
	}

	p := catalog.products["beer"]
	p.UnitPrice = price("99.00")
	catalog.products["beer"] = p

	summary, err := svc.Checkout(ctx, o.ID, domain.PaymentCard, "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if want := price("12.00"); !summary.Total.Equal(want) {
		t.Fatalf("total = %s, want %s (snapshotted price)", summary.Total, want)
	}
}

func TestPerUnitQuantityMustBeInteger(t *testing.T) {
	svc, _, ledger, _ := newTestService()
	ctx := context.Background()

	o, _ := svc.OpenTab(ctx, "staff-1", "table-6", "")
	before := ledger.levels["beer"]
	_, err := svc.AddItem(ctx, o.ID, "beer", price("1.5"))
	if !errors.Is(err, stockdomain.ErrInvalidQuantity) {
		t.Fatalf("err = %v, want ErrInvalidQuantity", err)
	}
	if !ledger.levels["beer"].Equal(before) {
		t.Fatalf("stock mutated on rejected quantity")
	}
}

func TestInsufficientStock(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	o, _ := svc.OpenTab(ctx, "staff-1", "table-7", "")
	_, err := svc.AddItem(ctx, o.ID, "beer", decimal.NewFromInt(11))
	if !errors.Is(err, stockdomain.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
}

func TestDuplicateOpenTab(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.OpenTab(ctx, "staff-1", "table-8", ""); err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := svc.OpenTab(ctx, "staff-2", "table-8", ""); !errors.Is(err, domain.ErrTabAlreadyOpen) {
		t.Fatalf("err = %v, want ErrTabAlreadyOpen", err)
	}
}

func TestOpenTabRequiresCustomerRef(t *testing.T) {
	svc, _, _, _ := newTestService()
	if _, err := svc.OpenTab(context.Background(), "staff-1", "", ""); !errors.Is(err, domain.ErrInvalidOrder) {
		t.Fatalf("err = %v, want ErrInvalidOrder", err)
	}
}

func TestLifecycleEmitsEvents(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	o, _ := svc.OpenTab(ctx, "staff-1", "table-9", "")
	line, _ := svc.AddItem(ctx, o.ID, "beer", decimal.NewFromInt(1))
	_ = svc.RemoveItem(ctx, o.ID, line.ID)
	_, _ = svc.AddItem(ctx, o.ID, "beer", decimal.NewFromInt(1))
	_, _ = svc.Checkout(ctx, o.ID, domain.PaymentCash, "")

	want := []string{
		domain.EventOrderOpened,
		domain.EventItemAdded,
		domain.EventItemRemoved,
		domain.EventItemAdded,
		domain.EventOrderClosed,
	}
	if len(repo.events) != len(want) {
		t.Fatalf("events = %v, want %v", repo.events, want)
	}
	for i := range want {
		if repo.events[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, repo.events[i], want[i])
		}
	}
}
