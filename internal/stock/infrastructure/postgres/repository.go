package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mvcruz/comanda/internal/pgdb"
	"github.com/mvcruz/comanda/internal/stock/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) Init(ctx context.Context, productID string, quantity decimal.Decimal) error {
	_, err := pgdb.From(ctx, r.pool).Exec(ctx,
		`INSERT INTO stock_entries (product_id, quantity, updated_at) VALUES ($1,$2,$3)
		 ON CONFLICT (product_id) DO NOTHING`,
		productID, quantity, time.Now().UTC())
	return err
}

// Reserve is the conditional decrement the whole order engine leans on: the
// WHERE clause makes the check-then-act a single atomic statement, so two
// concurrent reservations can never jointly overdraw a product.
func (r *Repository) Reserve(ctx context.Context, productID string, quantity decimal.Decimal) error {
	ct, err := pgdb.From(ctx, r.pool).Exec(ctx,
		`UPDATE stock_entries SET quantity = quantity - $2, updated_at = $3
		 WHERE product_id = $1 AND quantity >= $2`,
		productID, quantity, time.Now().UTC())
	if err != nil {
		if pgdb.IsContention(err) {
			return domain.ErrContention
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := pgdb.From(ctx, r.pool).QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM stock_entries WHERE product_id = $1)`, productID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrStockNotFound
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *Repository) Release(ctx context.Context, productID string, quantity decimal.Decimal) error {
	ct, err := pgdb.From(ctx, r.pool).Exec(ctx,
		`UPDATE stock_entries SET quantity = quantity + $2, updated_at = $3 WHERE product_id = $1`,
		productID, quantity, time.Now().UTC())
	if err != nil {
		if pgdb.IsContention(err) {
			return domain.ErrContention
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

func (r *Repository) Current(ctx context.Context, productID string) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := pgdb.From(ctx, r.pool).QueryRow(ctx,
		`SELECT quantity FROM stock_entries WHERE product_id = $1`, productID).Scan(&qty)
	if err != nil {
		if pgdb.IsNoRows(err) {
			return decimal.Zero, domain.ErrStockNotFound
		}
		return decimal.Zero, err
	}
	return qty, nil
}

func (r *Repository) Snapshot(ctx context.Context) ([]domain.Level, error) {
	rows, err := pgdb.From(ctx, r.pool).Query(ctx, `
		SELECT s.product_id, p.name, p.unit_kind, s.quantity
		FROM stock_entries s
		JOIN products p ON p.id = s.product_id
		WHERE p.active
		ORDER BY p.category, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []domain.Level
	for rows.Next() {
		var l domain.Level
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.UnitKind, &l.Quantity); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}
