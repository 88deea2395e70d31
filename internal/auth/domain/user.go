package domain

import (
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleWaiter  Role = "waiter"
	RoleCook    Role = "cook"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleWaiter, RoleCook:
		return true
	}
	return false
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("wrong username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidUser        = errors.New("invalid user")
)

type User struct {
	ID           string
	Name         string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

// RefreshToken is the allowlist entry for an issued refresh token. A user
// holds at most one live entry; login replaces it.
type RefreshToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
}

// Identity is the authenticated staff value attached to every request that
// reaches the order engine. The core trusts it and never inspects tokens.
type Identity struct {
	StaffID  string
	Username string
	Role     Role
}
