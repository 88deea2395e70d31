package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		active        BOOLEAN NOT NULL DEFAULT true,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		jti        UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		unit_kind   TEXT NOT NULL,
		unit_price  NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
		active      BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stock_entries (
		product_id UUID PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
		quantity   NUMERIC(14,3) NOT NULL CHECK (quantity >= 0),
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id             UUID PRIMARY KEY,
		staff_id       UUID NOT NULL REFERENCES users(id),
		customer_ref   TEXT NOT NULL,
		note           TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		payment_method TEXT,
		total          NUMERIC(12,2),
		opened_at      TIMESTAMPTZ NOT NULL,
		closed_at      TIMESTAMPTZ
	)`,
	// one open tab per customer reference
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_open_customer_ref
		ON orders (customer_ref) WHERE status = 'open'`,
	`CREATE INDEX IF NOT EXISTS orders_closed_at ON orders (closed_at) WHERE status = 'closed'`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		id         UUID PRIMARY KEY,
		order_id   UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		quantity   NUMERIC(14,3) NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL,
		added_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_lines_order_id ON order_lines (order_id)`,
	`CREATE TABLE IF NOT EXISTS order_status_history (
		id         BIGSERIAL PRIMARY KEY,
		order_id   UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		status     TEXT NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		changed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		type           TEXT NOT NULL,
		payload        JSONB NOT NULL,
		traceparent    TEXT,
		status         TEXT NOT NULL DEFAULT 'pending',
		relay_id       TEXT,
		lease_until    TIMESTAMPTZ,
		retry_count    INT NOT NULL DEFAULT 0,
		last_error     TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_pending ON outbox (id) WHERE status = 'pending'`,
}

// Migrate applies the schema. Statements are idempotent so startup can run
// this unconditionally.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
