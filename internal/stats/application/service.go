package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	stockdomain "github.com/mvcruz/comanda/internal/stock/domain"
)

var ErrUnknownWindow = errors.New("unknown statistics window")

// Window is the lookback period for order statistics.
type Window string

const (
	WindowDay      Window = "day"      // 1 day
	WindowWeek     Window = "week"     // 7 days
	WindowMonth    Window = "month"    // 30 days
	WindowYear     Window = "year"     // 365 days
	WindowLifetime Window = "lifetime" // everything on record
)

// lifetimeEpoch bounds the lifetime window; nothing predates the business.
var lifetimeEpoch = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case WindowDay, WindowWeek, WindowMonth, WindowYear, WindowLifetime:
		return Window(s), nil
	}
	return "", ErrUnknownWindow
}

func (w Window) from(now time.Time) time.Time {
	switch w {
	case WindowDay:
		return now.AddDate(0, 0, -1)
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, 0, -30)
	case WindowYear:
		return now.AddDate(0, 0, -365)
	default:
		return lifetimeEpoch
	}
}

// PaymentBreakdown aggregates closed orders per payment method.
type PaymentBreakdown struct {
	Method string          `json:"payment_method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// Report carries every aggregate for one window. Averages are zero when no
// order qualifies.
type Report struct {
	Window             Window             `json:"window"`
	From               time.Time          `json:"from"`
	To                 time.Time          `json:"to"`
	OrderCount         int                `json:"order_count"`
	TotalSpend         decimal.Decimal    `json:"total_spend"`
	AverageSpend       decimal.Decimal    `json:"average_spend"`
	MaxSpend           decimal.Decimal    `json:"max_spend"`
	MinSpend           decimal.Decimal    `json:"min_spend"`
	TotalDurationSecs  int64              `json:"total_duration_seconds"`
	AvgDurationSecs    int64              `json:"average_duration_seconds"`
	MaxDurationSecs    int64              `json:"max_duration_seconds"`
	MinDurationSecs    int64              `json:"min_duration_seconds"`
	PaymentSummary     []PaymentBreakdown `json:"payment_summary"`
	StaffFilterApplied bool               `json:"staff_filter_applied"`
}

// Service derives aggregates fresh per request by scanning the qualifying
// closed orders. No counters are materialized; history stays authoritative.
type Service struct {
	log     *slog.Logger
	history OrderHistory
	stock   StockReader
}

func NewService(log *slog.Logger, history OrderHistory, stock StockReader) *Service {
	return &Service{log: log, history: history, stock: stock}
}

// OrderStats computes spend and duration aggregates over the window,
// optionally restricted to one staff member's orders.
func (s *Service) OrderStats(ctx context.Context, w Window, staffID string) (Report, error) {
	now := time.Now().UTC()
	from := w.from(now)

	orders, err := s.history.ClosedBetween(ctx, from, now, staffID)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Window:             w,
		From:               from,
		To:                 now,
		OrderCount:         len(orders),
		TotalSpend:         decimal.Zero,
		AverageSpend:       decimal.Zero,
		MaxSpend:           decimal.Zero,
		MinSpend:           decimal.Zero,
		StaffFilterApplied: staffID != "",
	}
	if len(orders) == 0 {
		return report, nil
	}

	byMethod := make(map[string]*PaymentBreakdown)
	var totalDur, maxDur int64
	minDur := int64(-1)
	maxSpend := orders[0].Total
	minSpend := orders[0].Total

	for _, o := range orders {
		report.TotalSpend = report.TotalSpend.Add(o.Total)
		if o.Total.GreaterThan(maxSpend) {
			maxSpend = o.Total
		}
		if o.Total.LessThan(minSpend) {
			minSpend = o.Total
		}

		dur := int64(o.ClosedAt.Sub(o.OpenedAt).Seconds())
		totalDur += dur
		if dur > maxDur {
			maxDur = dur
		}
		if minDur < 0 || dur < minDur {
			minDur = dur
		}

		b, ok := byMethod[o.PaymentMethod]
		if !ok {
			b = &PaymentBreakdown{Method: o.PaymentMethod, Total: decimal.Zero}
			byMethod[o.PaymentMethod] = b
		}
		b.Count++
		b.Total = b.Total.Add(o.Total)
	}

	count := int64(len(orders))
	report.AverageSpend = report.TotalSpend.Div(decimal.NewFromInt(count)).Round(2)
	report.MaxSpend = maxSpend
	report.MinSpend = minSpend
	report.TotalDurationSecs = totalDur
	report.AvgDurationSecs = totalDur / count
	report.MaxDurationSecs = maxDur
	report.MinDurationSecs = minDur

	for _, b := range byMethod {
		report.PaymentSummary = append(report.PaymentSummary, *b)
	}
	sort.Slice(report.PaymentSummary, func(i, j int) bool {
		return report.PaymentSummary[i].Method < report.PaymentSummary[j].Method
	})
	return report, nil
}

// StockSnapshot is always "now", independent of any window.
func (s *Service) StockSnapshot(ctx context.Context) ([]stockdomain.Level, error) {
	return s.stock.Snapshot(ctx)
}
