// Package handler maps the HTTP surface onto the auth service.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/auth-service/internal/apperror"
	"github.com/sakif/auth-service/internal/auth"
	"github.com/sakif/auth-service/internal/model"
	"github.com/sakif/auth-service/internal/service"
)

// AuthHandler serves the /auth route group.
//
//	POST /auth/register  → HandleRegister
//	POST /auth/token     → HandleToken (password | refresh_token grants)
//	GET  /auth/userinfo  → HandleUserInfo (behind RequireScopes(profile))
//	POST /auth/logout    → HandleLogout (501, not implemented yet)
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, logger: logger}
}

// registerResponse is the 201 body of POST /auth/register.
type registerResponse struct {
	StatusCode   int            `json:"status_code"`
	UserInfo     model.UserInfo `json:"userinfo"`
	AccessToken  string         `json:"access_token"`
	TokenType    string         `json:"token_type"`
	RefreshToken string         `json:"refresh_token"`
}

// tokenResponse is the 200 body of POST /auth/token. userinfo and
// refresh_token are present only for the password grant.
type tokenResponse struct {
	StatusCode   int             `json:"status_code"`
	UserInfo     *model.UserInfo `json:"userinfo,omitempty"`
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	RefreshToken string          `json:"refresh_token,omitempty"`
}

// userInfoResponse is the 200 body of GET /auth/userinfo.
type userInfoResponse struct {
	StatusCode int    `json:"status_code"`
	ID         string `json:"id"`
	Email      string `json:"email"`
}

// expiresIn is the advertised access token lifetime in whole seconds,
// taken from the configured TTL so the two can never drift.
func (h *AuthHandler) expiresIn() int {
	return int(h.auth.AccessTokenTTL().Seconds())
}

// HandleRegister creates an account and immediately issues both tokens.
//
// HTTP: POST /auth/register (JSON)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, apperror.New(http.StatusBadRequest, apperror.CodeInvalidRequest, "request body must be valid JSON"))
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	accessToken, err := h.auth.IssueAccessToken(user.ID, user.Email, nil)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	refreshToken, err := h.auth.IssueRefreshToken(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, registerResponse{
		StatusCode:   http.StatusCreated,
		UserInfo:     user.Info(),
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
	})
}

// HandleToken is the token endpoint.
//
// HTTP: POST /auth/token (form-encoded)
//
// grant_type=password exchanges credentials for an access token, a fresh
// refresh token and the userinfo. grant_type=refresh_token exchanges a
// valid refresh token for a new access token only — the refresh token is
// neither rotated nor re-persisted. Any other grant_type is rejected with
// invalid_grant.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	req, err := ParseTokenRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, err)
		return
	}

	switch req.GrantType {
	case GrantTypePassword:
		h.handlePasswordGrant(w, r, req)
	case GrantTypeRefreshToken:
		h.handleRefreshTokenGrant(w, r, req)
	default:
		writeError(w, h.logger, apperror.New(http.StatusBadRequest, apperror.CodeInvalidGrant, "Invalid grant"))
	}
}

func (h *AuthHandler) handlePasswordGrant(w http.ResponseWriter, r *http.Request, req *TokenRequest) {
	user, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	accessToken, err := h.auth.IssueAccessToken(user.ID, user.Email, nil)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	refreshToken, err := h.auth.IssueRefreshToken(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	info := user.Info()
	writeJSON(w, h.logger, http.StatusOK, tokenResponse{
		StatusCode:   http.StatusOK,
		UserInfo:     &info,
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresIn:    h.expiresIn(),
		RefreshToken: refreshToken,
	})
}

func (h *AuthHandler) handleRefreshTokenGrant(w http.ResponseWriter, r *http.Request, req *TokenRequest) {
	payload, err := h.auth.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	// The refresh token carries only the user ID; the email comes from
	// the store so the new access token reflects the current record.
	info, err := h.auth.GetUserInfo(r.Context(), payload.UserInfo.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	accessToken, err := h.auth.IssueAccessToken(info.ID, info.Email, nil)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, tokenResponse{
		StatusCode:  http.StatusOK,
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   h.expiresIn(),
	})
}

// HandleUserInfo returns the authenticated user's public identity.
//
// HTTP: GET /auth/userinfo
// Auth: bearer token with the profile scope (enforced by RequireScopes).
func (h *AuthHandler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.UserInfoFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireScopes, but don't serve an anonymous
		// request if the wiring ever changes.
		writeError(w, h.logger, apperror.New(http.StatusUnauthorized, apperror.CodeInvalidGrant, "Invalid or expired token."))
		return
	}

	info, err := h.auth.GetUserInfo(r.Context(), identity.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, userInfoResponse{
		StatusCode: http.StatusOK,
		ID:         info.ID,
		Email:      info.Email,
	})
}

// HandleLogout is a placeholder: token revocation is not wired up yet
// (the refresh_token.is_revoked column is reserved for it).
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusNotImplemented, map[string]any{
		"status_code": http.StatusNotImplemented,
		"message":     "Method not implemented",
	})
}
