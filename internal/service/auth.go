// Package service holds the authentication business logic, between the
// HTTP handlers and the repository/auth primitives:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT) ↘ PasswordService (bcrypt)
//
// Every operation here is a straight-line sequence: it either returns
// successfully or fails with a typed *apperror.Error; infrastructure
// errors propagate wrapped for the boundary to turn into a 500.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"github.com/sakif/auth-service/internal/apperror"
	"github.com/sakif/auth-service/internal/auth"
	"github.com/sakif/auth-service/internal/model"
	"github.com/sakif/auth-service/internal/repository"
)

// AuthService orchestrates registration, sign-in, userinfo lookup and
// token issuance/verification.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all dependencies injected.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new user account.
//
// The email lookup here gives duplicates a clean 409 in the common case;
// the store's unique constraint covers the race where two registrations
// for the same email pass this check simultaneously — the losing insert
// comes back as the identical user_exists conflict.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.New(http.StatusConflict, apperror.CodeUserExists, "User already exists")
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("service/auth: looking up email: %w", err)
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, Password: hashed}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	return user, nil
}

// SignIn authenticates an email/password pair.
//
// A missing user and a wrong password produce the IDENTICAL error — same
// status, code and message — so the response gives away nothing about
// which emails are registered.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	invalidCredentials := func() *apperror.Error {
		return apperror.New(http.StatusBadRequest, apperror.CodeInvalidCredentials, "Invalid credentials")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up email: %w", err)
	}

	if err := s.passwords.Verify(user.Password, password); err != nil {
		return nil, invalidCredentials()
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))

	return user, nil
}

// GetUserInfo looks a user up by ID or email and returns their public
// identity. Inputs that parse as an email address are treated as emails;
// anything else is treated as an internal ID.
func (s *AuthService) GetUserInfo(ctx context.Context, idOrEmail string) (model.UserInfo, error) {
	var (
		user *model.User
		err  error
	)
	if _, mailErr := mail.ParseAddress(idOrEmail); mailErr == nil {
		user, err = s.users.GetByEmail(ctx, idOrEmail)
	} else {
		user, err = s.users.GetByID(ctx, idOrEmail)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.UserInfo{}, apperror.New(http.StatusNotFound, apperror.CodeResourceNotFound, "User Info could not be found")
		}
		return model.UserInfo{}, fmt.Errorf("service/auth: fetching user: %w", err)
	}

	return user.Info(), nil
}

// IssueAccessToken delegates to the token service. Handlers only import
// this package, not the auth package's issuing surface.
func (s *AuthService) IssueAccessToken(userID, email string, scopes auth.ScopeSet) (string, error) {
	return s.tokens.IssueAccessToken(userID, email, scopes)
}

// IssueRefreshToken delegates to the token service, which also persists
// the token.
func (s *AuthService) IssueRefreshToken(ctx context.Context, userID string) (string, error) {
	return s.tokens.IssueRefreshToken(ctx, userID)
}

// AccessTokenTTL reports the configured access token lifetime.
func (s *AuthService) AccessTokenTTL() time.Duration {
	return s.tokens.AccessTokenTTL()
}

// VerifyRefreshToken verifies a refresh token and returns its payload.
func (s *AuthService) VerifyRefreshToken(tokenStr string) (*auth.AccessTokenPayload, error) {
	return s.tokens.VerifyRefreshToken(tokenStr)
}
