package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mvcruz/comanda/internal/auth/domain"
)

type memRepo struct {
	users  map[string]domain.User
	tokens map[string]domain.RefreshToken // keyed by user id
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:  make(map[string]domain.User),
		tokens: make(map[string]domain.RefreshToken),
	}
}

func (r *memRepo) InsertUser(_ context.Context, u domain.User) error {
	if _, ok := r.users[u.Username]; ok {
		return domain.ErrUsernameTaken
	}
	r.users[u.Username] = u
	return nil
}

func (r *memRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	u, ok := r.users[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *memRepo) ReplaceRefreshToken(_ context.Context, t domain.RefreshToken) error {
	r.tokens[t.UserID] = t
	return nil
}

func (r *memRepo) RefreshTokenValid(_ context.Context, jti string) (bool, error) {
	// The backing column is UUID-typed; anything else fails at encode time.
	if _, err := uuid.Parse(jti); err != nil {
		return false, errors.New("cannot encode jti as uuid")
	}
	for _, t := range r.tokens {
		if t.JTI == jti && t.ExpiresAt.After(time.Now().UTC()) {
			return true, nil
		}
	}
	return false, nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(log, repo, []byte("test-secret"), 15*time.Minute, time.Hour), repo
}

func register(t *testing.T, svc *Service, username, password string, active bool) domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Test Staff",
		Username: username,
		Email:    username + "@example.com",
		Password: password,
		Role:     domain.RoleWaiter,
		Active:   active,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func TestLoginVerifyRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	u := register(t, svc, "ana", "s3cret", true)

	pair, err := svc.Login(context.Background(), "ana", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	id, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.StaffID != u.ID || id.Username != "ana" || id.Role != domain.RoleWaiter {
		t.Fatalf("identity = %+v", id)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "ana", "s3cret", true)

	if _, err := svc.Login(context.Background(), "ana", "nope"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "ghost", "nope"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "bob", "s3cret", false)

	if _, err := svc.Login(context.Background(), "bob", "s3cret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshFlow(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "ana", "s3cret", true)

	pair, err := svc.Login(context.Background(), "ana", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	access, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := svc.VerifyAccess(access); err != nil {
		t.Fatalf("verify refreshed access: %v", err)
	}
}

func TestRefreshReplacedOnRelogin(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "ana", "s3cret", true)
	ctx := context.Background()

	first, err := svc.Login(ctx, "ana", "s3cret")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := svc.Login(ctx, "ana", "s3cret"); err != nil {
		t.Fatalf("second login: %v", err)
	}

	// First refresh token's jti was replaced in the allowlist.
	if _, err := svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestService()
	register(t, svc, "ana", "s3cret", true)

	pair, err := svc.Login(context.Background(), "ana", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	// Access tokens carry no allowlisted jti.
	if _, err := svc.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []RegisterInput{
		{Username: "x", Email: "x@y.z", Password: "p", Role: domain.RoleAdmin},       // no name
		{Name: "x", Email: "x@y.z", Password: "p", Role: domain.RoleAdmin},           // no username
		{Name: "x", Username: "x", Password: "p", Role: domain.RoleAdmin},            // no email
		{Name: "x", Username: "x", Email: "x@y.z", Role: domain.RoleAdmin},           // no password
		{Name: "x", Username: "x", Email: "x@y.z", Password: "p", Role: "intern"},    // bad role
	}
	for i, in := range cases {
		if _, err := svc.Register(ctx, in); !errors.Is(err, domain.ErrInvalidUser) {
			t.Fatalf("case %d: err = %v, want ErrInvalidUser", i, err)
		}
	}
}

func TestVerifyAccessRejectsGarbage(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.VerifyAccess("not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
