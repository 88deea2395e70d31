package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mvcruz/comanda/internal/catalog/domain"
	"github.com/mvcruz/comanda/internal/pgdb"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

const productColumns = `id, name, description, category, unit_kind, unit_price, active, created_at, updated_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.UnitKind,
		&p.UnitPrice, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repository) Create(ctx context.Context, p domain.Product, initialStock decimal.Decimal) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO products (id, name, description, category, unit_kind, unit_price, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.Name, p.Description, p.Category, p.UnitKind, p.UnitPrice, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO stock_entries (product_id, quantity, updated_at) VALUES ($1,$2,$3)`,
		p.ID, initialStock, time.Now().UTC())
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) Update(ctx context.Context, p domain.Product) error {
	ct, err := pgdb.From(ctx, r.pool).Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, category=$4, unit_kind=$5, unit_price=$6, active=$7, updated_at=$8
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Category, p.UnitKind, p.UnitPrice, p.Active, p.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(pgdb.From(ctx, r.pool).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if err != nil {
		if pgdb.IsNoRows(err) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	rows, err := pgdb.From(ctx, r.pool).Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY category, name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) HasOrderLines(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := pgdb.From(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM order_lines WHERE product_id=$1)`, id).Scan(&exists)
	return exists, err
}
