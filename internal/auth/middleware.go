package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/auth-service/internal/apperror"
	"github.com/sakif/auth-service/internal/model"
)

// contextKey is an unexported type for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the userinfo value we store in the request context.
type contextKey string

const userInfoKey contextKey = "userinfo"

// RequireScopes is the authorization middleware for protected routes.
//
// For each request it:
//  1. extracts the bearer token from the Authorization header
//  2. verifies it against the access-token secret
//  3. checks that the token's granted scopes cover every required scope
//  4. attaches the decoded userinfo to the request context and proceeds
//
// Failures short-circuit with the standard error envelope: a missing or
// invalid token is 401 invalid_grant, an insufficient scope set is 403
// invalid_scope, and anything unexpected from verification is wrapped into
// a 500 with the cause logged, never serialized.
func RequireScopes(tokens *TokenService, logger *slog.Logger, required ...Scope) func(http.Handler) http.Handler {
	requiredSet := NewScopeSet(required...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				writeAuthError(w, logger, apperror.New(
					http.StatusUnauthorized,
					apperror.CodeInvalidGrant,
					"Token missing. Access token is required to serve this request",
				))
				return
			}

			payload, err := tokens.VerifyAccessToken(tokenStr)
			if err != nil {
				var apiErr *apperror.Error
				if !errors.As(err, &apiErr) {
					logger.Error("token verification failed",
						slog.String("error", err.Error()),
					)
					apiErr = apperror.Unhandled(err)
				}
				writeAuthError(w, logger, apiErr)
				return
			}

			if payload.UserInfo.ID == "" {
				writeAuthError(w, logger, apperror.New(
					http.StatusUnauthorized,
					apperror.CodeInvalidGrant,
					"Invalid or expired token.",
				))
				return
			}

			if !payload.Scope.ContainsAll(requiredSet) {
				writeAuthError(w, logger, apperror.New(
					http.StatusForbidden,
					apperror.CodeInvalidScope,
					"Invalid scope. Access denied.",
				))
				return
			}

			// UserInfo is a value type, so storing it in the context hands
			// downstream handlers their own copy, detached from the
			// decoded claims.
			ctx := context.WithValue(r.Context(), userInfoKey, payload.UserInfo)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserInfoFromContext retrieves the authenticated identity placed in the
// request context by RequireScopes. Returns (zero, false) when the request
// did not pass through the middleware.
func UserInfoFromContext(ctx context.Context) (model.UserInfo, bool) {
	info, ok := ctx.Value(userInfoKey).(model.UserInfo)
	return info, ok && info.ID != ""
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns "" when the header is absent or not in bearer form.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeAuthError serializes the standard error envelope.
//
// This package cannot use the handler package's response helpers (handler
// imports auth for the context accessor), so the envelope is rendered
// directly from apperror here.
func writeAuthError(w http.ResponseWriter, logger *slog.Logger, apiErr *apperror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	if err := json.NewEncoder(w).Encode(apiErr.Envelope()); err != nil {
		logger.Error("failed to encode auth error response", slog.String("error", err.Error()))
	}
}
