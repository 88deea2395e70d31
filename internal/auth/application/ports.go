package application

import (
	"context"

	"github.com/mvcruz/comanda/internal/auth/domain"
)

type Repository interface {
	InsertUser(ctx context.Context, u domain.User) error
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	// ReplaceRefreshToken drops any live refresh token for the user and
	// stores the new one: one refresh token per user, replaced on login.
	ReplaceRefreshToken(ctx context.Context, t domain.RefreshToken) error
	RefreshTokenValid(ctx context.Context, jti string) (bool, error)
}
