package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
)

type memHistory struct {
	orders []ClosedOrder
}

func (h *memHistory) ClosedBetween(_ context.Context, from, to time.Time, staffID string) ([]ClosedOrder, error) {
	var out []ClosedOrder
	for _, o := range h.orders {
		if o.ClosedAt.Before(from) || o.ClosedAt.After(to) {
			continue
		}
		if staffID != "" && o.StaffID != staffID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type memStock struct {
	levels []stockdomain.Level
}

func (s *memStock) Snapshot(_ context.Context) ([]stockdomain.Level, error) {
	return s.levels, nil
}

func closedOrder(staffID, method, total string, openedAgo, closedAgo time.Duration) ClosedOrder {
	now := time.Now().UTC()
	return ClosedOrder{
		ID:            total,
		StaffID:       staffID,
		Total:         decimal.RequireFromString(total),
		PaymentMethod: method,
		OpenedAt:      now.Add(-openedAgo),
		ClosedAt:      now.Add(-closedAgo),
	}
}

func newTestService(orders ...ClosedOrder) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, &memHistory{orders: orders}, &memStock{})
}

func TestOrderStatsAggregates(t *testing.T) {
	svc := newTestService(
		closedOrder("s1", "cash", "10.00", 2*time.Hour, time.Hour),  // 3600s
		closedOrder("s1", "card", "20.00", 90*time.Minute, time.Hour), // 1800s
		closedOrder("s2", "cash", "30.00", 70*time.Minute, time.Hour), // 600s
	)

	report, err := svc.OrderStats(context.Background(), WindowDay, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if report.OrderCount != 3 {
		t.Fatalf("count = %d, want 3", report.OrderCount)
	}
	if want := decimal.RequireFromString("60.00"); !report.TotalSpend.Equal(want) {
		t.Fatalf("total = %s, want %s", report.TotalSpend, want)
	}
	if want := decimal.RequireFromString("20.00"); !report.AverageSpend.Equal(want) {
		t.Fatalf("avg = %s, want %s", report.AverageSpend, want)
	}
	if want := decimal.RequireFromString("30.00"); !report.MaxSpend.Equal(want) {
		t.Fatalf("max = %s, want %s", report.MaxSpend, want)
	}
	if want := decimal.RequireFromString("10.00"); !report.MinSpend.Equal(want) {
		t.Fatalf("min = %s, want %s", report.MinSpend, want)
	}
	if report.TotalDurationSecs != 6000 {
		t.Fatalf("total duration = %d, want 6000", report.TotalDurationSecs)
	}
	if report.AvgDurationSecs != 2000 {
		t.Fatalf("avg duration = %d, want 2000", report.AvgDurationSecs)
	}
	if report.MaxDurationSecs != 3600 || report.MinDurationSecs != 600 {
		t.Fatalf("duration bounds = %d/%d, want 3600/600", report.MaxDurationSecs, report.MinDurationSecs)
	}
}

func TestOrderStatsPaymentBreakdown(t *testing.T) {
	svc := newTestService(
		closedOrder("s1", "cash", "10.00", time.Hour, time.Minute),
		closedOrder("s1", "pix", "20.00", time.Hour, time.Minute),
		closedOrder("s2", "cash", "15.00", time.Hour, time.Minute),
	)

	report, err := svc.OrderStats(context.Background(), WindowWeek, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(report.PaymentSummary) != 2 {
		t.Fatalf("breakdown size = %d, want 2", len(report.PaymentSummary))
	}
	// Sorted by method name: cash before pix.
	cash, pix := report.PaymentSummary[0], report.PaymentSummary[1]
	if cash.Method != "cash" || cash.Count != 2 || !cash.Total.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("cash = %+v", cash)
	}
	if pix.Method != "pix" || pix.Count != 1 || !pix.Total.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("pix = %+v", pix)
	}
}

func TestOrderStatsStaffFilter(t *testing.T) {
	svc := newTestService(
		closedOrder("s1", "cash", "10.00", time.Hour, time.Minute),
		closedOrder("s2", "cash", "50.00", time.Hour, time.Minute),
	)

	report, err := svc.OrderStats(context.Background(), WindowMonth, "s2")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !report.StaffFilterApplied {
		t.Fatal("staff filter flag not set")
	}
	if report.OrderCount != 1 {
		t.Fatalf("count = %d, want 1", report.OrderCount)
	}
	if !report.TotalSpend.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("total = %s, want 50.00", report.TotalSpend)
	}
}

func TestOrderStatsEmptyWindow(t *testing.T) {
	svc := newTestService()

	report, err := svc.OrderStats(context.Background(), WindowDay, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if report.OrderCount != 0 {
		t.Fatalf("count = %d, want 0", report.OrderCount)
	}
	if !report.TotalSpend.IsZero() || !report.AverageSpend.IsZero() {
		t.Fatalf("spend aggregates not zero: %+v", report)
	}
	if report.AvgDurationSecs != 0 || report.MaxDurationSecs != 0 {
		t.Fatalf("duration aggregates not zero: %+v", report)
	}
}

func TestOrderStatsWindowBounds(t *testing.T) {
	svc := newTestService(
		closedOrder("s1", "cash", "10.00", 49*time.Hour, 48*time.Hour),   // outside day
		closedOrder("s1", "cash", "20.00", 2*time.Hour, time.Hour),       // inside day
	)

	day, err := svc.OrderStats(context.Background(), WindowDay, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if day.OrderCount != 1 {
		t.Fatalf("day count = %d, want 1", day.OrderCount)
	}

	lifetime, err := svc.OrderStats(context.Background(), WindowLifetime, "")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if lifetime.OrderCount != 2 {
		t.Fatalf("lifetime count = %d, want 2", lifetime.OrderCount)
	}
}

func TestParseWindow(t *testing.T) {
	for _, s := range []string{"day", "week", "month", "year", "lifetime"} {
		if _, err := ParseWindow(s); err != nil {
			t.Fatalf("ParseWindow(%q): %v", s, err)
		}
	}
	if _, err := ParseWindow("fortnight"); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("err = %v, want ErrUnknownWindow", err)
	}
}
