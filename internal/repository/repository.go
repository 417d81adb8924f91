// Package repository defines the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"
	"errors"

	"github.com/sakif/auth-service/internal/model"
)

// ErrNotFound is returned when a lookup matches no row. Callers decide
// what "absent" means: for sign-in it is an expected branch, for userinfo
// it is a 404.
var ErrNotFound = errors.New("not found")

// UserRepository persists user records.
type UserRepository interface {
	// Create inserts a new user. The store's unique constraint on email is
	// the authoritative duplicate check; a violation surfaces as a
	// user_exists conflict.
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// RefreshTokenRepository persists issued refresh tokens. The method name
// carries the entity because one store type implements both repositories.
type RefreshTokenRepository interface {
	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error
	// GetByToken looks a token up by its composite (userID, token) key.
	// Nothing in the issue/refresh flows reads tokens back today; this
	// exists for auditing and the eventual revocation flow.
	GetByToken(ctx context.Context, userID, token string) (*model.RefreshToken, error)
}
