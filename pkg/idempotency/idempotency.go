package idempotency

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store remembers idempotency keys it has acknowledged. Backed by redis
// SETNX with a TTL, so a key is claimed exactly once per window.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) key(method, path, key string) string {
	return fmt.Sprintf("idem:%s:%s:%s", method, path, key)
}

// Claim marks the key as used. Returns false when it was already claimed.
func (s *Store) Claim(ctx context.Context, method, path, key string) (bool, error) {
	return s.rdb.SetNX(ctx, s.key(method, path, key), "1", s.ttl).Result()
}

// Release frees a claimed key so the caller can retry under it.
func (s *Store) Release(ctx context.Context, method, path, key string) error {
	return s.rdb.Del(ctx, s.key(method, path, key)).Err()
}

// Keeper is the claim/release contract the middleware needs.
type Keeper interface {
	Claim(ctx context.Context, method, path, key string) (bool, error)
	Release(ctx context.Context, method, path, key string) error
}

// Middleware enforces at-most-once semantics for mutating order calls:
// a client that retries after a timeout sends the same Idempotency-Key and
// gets a conflict instead of a doubled side effect. Only a successful
// response consumes the key; a failed call releases it so the same key stays
// retryable. Requests without the header pass through untouched.
func Middleware(store Keeper) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ok, err := store.Claim(r.Context(), r.Method, r.URL.Path, key)
			if err != nil {
				// Redis being down must not block order taking.
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				http.Error(w, "duplicate request", http.StatusConflict)
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			if sw.status >= http.StatusMultipleChoices {
				_ = store.Release(r.Context(), r.Method, r.URL.Path, key)
			}
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
