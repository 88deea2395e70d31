package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvcruz/comanda/internal/order/application"
	"github.com/mvcruz/comanda/internal/order/domain"
	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
)

type stubRepo struct {
	application.Repository
	orders map[string]domain.Order
	errs   map[string]error
}

func (r *stubRepo) GetByID(_ context.Context, id string) (domain.Order, error) {
	// The backing column is UUID-typed; anything else fails at encode time.
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, errors.New("cannot encode id as uuid")
	}
	if err, ok := r.errs[id]; ok {
		return domain.Order{}, err
	}
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *stubRepo) ListOpen(_ context.Context, limit, offset int) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if o.IsOpen() {
			out = append(out, o)
		}
	}
	return out, nil
}

func newTestHandler(repo *stubRepo) *Handler {
	if repo.orders == nil {
		repo.orders = make(map[string]domain.Order)
	}
	if repo.errs == nil {
		repo.errs = make(map[string]error)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(log, nil, repo, nil, nil)
	return NewHandler(log, svc, nil)
}

func TestGetOrderNotFound(t *testing.T) {
	h := newTestHandler(&stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetOrderMalformedID(t *testing.T) {
	h := newTestHandler(&stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	// A malformed id must read as an unknown order, not an internal error.
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetOrder(t *testing.T) {
	orderID := uuid.NewString()
	opened := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h := newTestHandler(&stubRepo{orders: map[string]domain.Order{
		orderID: {
			ID:          orderID,
			StaffID:     uuid.NewString(),
			CustomerRef: "table-2",
			Status:      domain.StatusOpen,
			Total:       decimal.RequireFromString("18.00"),
			Lines: []domain.Line{{
				ID: uuid.NewString(), OrderID: orderID, ProductID: uuid.NewString(), ProductName: "Beer",
				Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("6.00"),
			}},
			OpenedAt: opened,
		},
	}})

	req := httptest.NewRequest(http.MethodGet, "/"+orderID, nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var got orderDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != orderID || got.CustomerRef != "table-2" || got.Status != "open" {
		t.Fatalf("dto = %+v", got)
	}
	if len(got.Lines) != 1 || !got.Lines[0].Subtotal.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("lines = %+v", got.Lines)
	}
}

func TestContentionMapsToRetryable(t *testing.T) {
	lockedOrder := uuid.NewString()
	lockedStock := uuid.NewString()
	h := newTestHandler(&stubRepo{errs: map[string]error{
		lockedOrder: domain.ErrContention,
		lockedStock: stockdomain.ErrContention,
	}})

	for _, id := range []string{lockedOrder, lockedStock} {
		req := httptest.NewRequest(http.MethodGet, "/"+id, nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Fatal("missing Retry-After header")
		}
	}
}

func TestListOpenPaging(t *testing.T) {
	orderID := uuid.NewString()
	h := newTestHandler(&stubRepo{orders: map[string]domain.Order{
		orderID: {ID: orderID, Status: domain.StatusOpen, Total: decimal.Zero},
	}})

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Orders  []orderDTO `json:"orders"`
		HasNext bool       `json:"has_next"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 || resp.HasNext {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestMutatingRoutesRequireIdentity(t *testing.T) {
	h := newTestHandler(&stubRepo{})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
