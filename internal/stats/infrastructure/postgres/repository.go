package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvcruz/comanda/internal/stats/application"
)

// Repository reads closed-order history for the statistics engine. It never
// writes; the order context owns all mutation.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) ClosedBetween(ctx context.Context, from, to time.Time, staffID string) ([]application.ClosedOrder, error) {
	query := `
		SELECT id, staff_id, total, payment_method, opened_at, closed_at
		FROM orders
		WHERE status = 'closed' AND closed_at BETWEEN $1 AND $2`
	args := []any{from, to}
	if staffID != "" {
		query += ` AND staff_id = $3`
		args = append(args, staffID)
	}
	query += ` ORDER BY closed_at`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []application.ClosedOrder
	for rows.Next() {
		var o application.ClosedOrder
		if err := rows.Scan(&o.ID, &o.StaffID, &o.Total, &o.PaymentMethod, &o.OpenedAt, &o.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
