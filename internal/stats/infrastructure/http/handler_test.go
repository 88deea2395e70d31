package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mvcruz/comanda/internal/stats/application"
	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
)

type stubHistory struct{}

func (stubHistory) ClosedBetween(_ context.Context, _, _ time.Time, _ string) ([]application.ClosedOrder, error) {
	return nil, nil
}

type stubStock struct{}

func (stubStock) Snapshot(_ context.Context) ([]stockdomain.Level, error) { return nil, nil }

func newTestHandler() *Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(log, application.NewService(log, stubHistory{}, stubStock{}))
}

func TestOrderStatsUnknownWindow(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/orders/fortnight", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOrderStatsMalformedStaffID(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/orders/day?staff_id=abc", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	// A staff id that cannot encode as uuid is a bad request, not a 500.
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestOrderStatsValidStaffID(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/orders/day?staff_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}
