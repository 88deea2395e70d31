package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvcruz/comanda/internal/order/domain"
	"github.com/mvcruz/comanda/internal/pgdb"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Insert(ctx context.Context, o domain.Order) error {
	_, err := pgdb.From(ctx, r.pool).Exec(ctx, `
		INSERT INTO orders (id, staff_id, customer_ref, note, status, opened_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.StaffID, o.CustomerRef, o.Note, o.Status, o.OpenedAt)
	if err != nil {
		if pgdb.IsUniqueViolation(err) {
			return domain.ErrTabAlreadyOpen
		}
		return err
	}
	return nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var payment *string
	err := row.Scan(&o.ID, &o.StaffID, &o.CustomerRef, &o.Note, &o.Status,
		&payment, &o.Total, &o.OpenedAt, &o.ClosedAt)
	if err != nil {
		return domain.Order{}, err
	}
	if payment != nil {
		o.PaymentMethod = domain.PaymentMethod(*payment)
	}
	return o, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Order, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the order row with NOWAIT so a concurrent mutation on
// the same order fails fast instead of queueing; the loser sees ErrContention.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.get(ctx, id, true)
}

func (r *Repository) get(ctx context.Context, id string, forUpdate bool) (domain.Order, error) {
	q := pgdb.From(ctx, r.pool)

	// The COALESCE derives the running total for open orders; the stored
	// column is only written when checkout freezes it.
	sql := `SELECT id, staff_id, customer_ref, note, status, payment_method,
		COALESCE(total, (SELECT COALESCE(SUM(quantity * unit_price), 0) FROM order_lines l WHERE l.order_id = orders.id)),
		opened_at, closed_at
		FROM orders WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE OF orders NOWAIT`
	}

	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if err != nil {
		if pgdb.IsNoRows(err) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		if pgdb.IsContention(err) {
			return domain.Order{}, domain.ErrContention
		}
		return domain.Order{}, err
	}

	rows, err := q.Query(ctx, `
		SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.unit_price, l.added_at
		FROM order_lines l JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1 ORDER BY l.added_at, l.id`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice, &l.AddedAt); err != nil {
			return domain.Order{}, err
		}
		o.Lines = append(o.Lines, l)
	}
	return o, rows.Err()
}

func (r *Repository) InsertLine(ctx context.Context, l domain.Line) error {
	_, err := pgdb.From(ctx, r.pool).Exec(ctx, `
		INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price, added_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.ID, l.OrderID, l.ProductID, l.Quantity, l.UnitPrice, l.AddedAt)
	return err
}

func (r *Repository) DeleteLine(ctx context.Context, lineID string) error {
	ct, err := pgdb.From(ctx, r.pool).Exec(ctx, `DELETE FROM order_lines WHERE id = $1`, lineID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (r *Repository) Close(ctx context.Context, o domain.Order) error {
	ct, err := pgdb.From(ctx, r.pool).Exec(ctx, `
		UPDATE orders SET status=$2, payment_method=$3, total=$4, note=$5, closed_at=$6
		WHERE id=$1 AND status=$7`,
		o.ID, domain.StatusClosed, o.PaymentMethod, o.Total, o.Note, o.ClosedAt, domain.StatusOpen)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotOpen
	}
	return nil
}

func (r *Repository) ListOpen(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	return r.list(ctx, domain.StatusOpen, `opened_at DESC`, limit, offset)
}

func (r *Repository) ListClosed(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	return r.list(ctx, domain.StatusClosed, `closed_at DESC`, limit, offset)
}

func (r *Repository) list(ctx context.Context, status domain.Status, order string, limit, offset int) ([]domain.Order, error) {
	rows, err := pgdb.From(ctx, r.pool).Query(ctx, `
		SELECT id, staff_id, customer_ref, note, status, payment_method,
			COALESCE(total, (SELECT COALESCE(SUM(quantity * unit_price), 0) FROM order_lines l WHERE l.order_id = orders.id)),
			opened_at, closed_at
		FROM orders WHERE status = $1 ORDER BY `+order+` LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) AppendStatusChange(ctx context.Context, c domain.StatusChange) error {
	_, err := pgdb.From(ctx, r.pool).Exec(ctx, `
		INSERT INTO order_status_history (order_id, status, note, changed_at)
		VALUES ($1,$2,$3,$4)`,
		c.OrderID, c.Status, c.Note, c.ChangedAt)
	return err
}

func (r *Repository) EnqueueEvent(ctx context.Context, eventType, aggregateID string, payload []byte, traceparent string) error {
	_, err := pgdb.From(ctx, r.pool).Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,'pending')`,
		"order", aggregateID, eventType, payload, traceparent)
	return err
}
