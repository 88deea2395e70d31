package postgres

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mvcruz/comanda/internal/auth/domain"
	"github.com/mvcruz/comanda/internal/pgdb"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, username, email, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Name, u.Username, u.Email, u.PasswordHash, u.Role, u.Active, u.CreatedAt)
	if err != nil {
		if pgdb.IsUniqueViolation(err) {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "email") {
				return domain.ErrEmailTaken
			}
			return domain.ErrUsernameTaken
		}
		return err
	}
	return nil
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, username, email, password_hash, role, active, created_at
		FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if pgdb.IsNoRows(err) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r *Repository) ReplaceRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, t.UserID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO refresh_tokens (jti, user_id, expires_at) VALUES ($1,$2,$3)`,
		t.JTI, t.UserID, t.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) RefreshTokenValid(ctx context.Context, jti string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE jti = $1 AND expires_at > $2)`,
		jti, time.Now().UTC()).Scan(&ok)
	return ok, err
}
