package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mvcruz/comanda/internal/auth/domain"
)

// Service issues and verifies the access/refresh token pair. Everything past
// the middleware only ever sees the Identity value it produces; the order
// engine never touches a token.
type Service struct {
	log        *slog.Logger
	repo       Repository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(log *slog.Logger, repo Repository, secret []byte, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{log: log, repo: repo, secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type accessClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Login verifies credentials and hands out a fresh token pair. The refresh
// token's jti replaces the user's previous one in the allowlist.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return TokenPair{}, domain.ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !u.Active {
		return TokenPair{}, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return TokenPair{}, domain.ErrInvalidCredentials
	}

	access, err := s.signAccess(u)
	if err != nil {
		return TokenPair{}, err
	}

	jti := uuid.NewString()
	expiresAt := time.Now().UTC().Add(s.refreshTTL)
	refresh, err := s.signRefresh(u, jti, expiresAt)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.repo.ReplaceRefreshToken(ctx, domain.RefreshToken{
		JTI: jti, UserID: u.ID, ExpiresAt: expiresAt,
	}); err != nil {
		return TokenPair{}, err
	}

	s.log.Info("staff logged in", "user_id", u.ID, "username", u.Username)
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh trades a valid, allowlisted refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims := &accessClaims{}
	if _, err := s.parse(refreshToken, claims); err != nil {
		return "", domain.ErrInvalidToken
	}
	// Access tokens carry no jti; anything that is not a jti we issued can be
	// rejected before touching the allowlist.
	if _, err := uuid.Parse(claims.ID); err != nil {
		return "", domain.ErrInvalidToken
	}
	ok, err := s.repo.RefreshTokenValid(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrInvalidToken
	}

	u, err := s.repo.GetByUsername(ctx, claims.Username)
	if err != nil || !u.Active {
		return "", domain.ErrInvalidToken
	}
	return s.signAccess(u)
}

type RegisterInput struct {
	Name     string
	Username string
	Email    string
	Password string
	Role     domain.Role
	Active   bool
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" || !in.Role.Valid() {
		return domain.User{}, domain.ErrInvalidUser
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Active:       in.Active,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	s.log.Info("staff registered", "user_id", u.ID, "username", u.Username, "role", string(u.Role))
	return u, nil
}

// VerifyAccess turns a bearer access token into the Identity attached to the
// request context.
func (s *Service) VerifyAccess(tokenString string) (domain.Identity, error) {
	claims := &accessClaims{}
	if _, err := s.parse(tokenString, claims); err != nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return domain.Identity{
		StaffID:  claims.Subject,
		Username: claims.Username,
		Role:     domain.Role(claims.Role),
	}, nil
}

func (s *Service) signAccess(u domain.User) (string, error) {
	now := time.Now().UTC()
	claims := accessClaims{
		Username: u.Username,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) signRefresh(u domain.User, jti string, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		Username: u.Username,
		Role:     string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(tokenString string, claims jwt.Claims) (*jwt.Token, error) {
	return jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.secret, nil
	})
}
