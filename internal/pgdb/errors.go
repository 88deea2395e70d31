package pgdb

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes the repositories translate into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsUniqueViolation(err error) bool { return pgCode(err) == codeUniqueViolation }

// IsContention reports lock-not-available (FOR UPDATE NOWAIT losing the race)
// and serialization failures. Both mean the transaction did not commit and
// the caller may retry.
func IsContention(err error) bool {
	code := pgCode(err)
	return code == codeLockNotAvailable || code == codeSerializationFailure
}

func IsNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }
