package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/auth-service/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// okHandler records the userinfo the middleware placed in the context.
func okHandler(captured *model.UserInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info, ok := UserInfoFromContext(r.Context()); ok {
			*captured = info
		}
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, authHeader string, captured *model.UserInfo) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/auth/userinfo", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	mw(okHandler(captured)).ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireScopes_MissingToken(t *testing.T) {
	ts := newTestTokenService(t, nil)
	mw := RequireScopes(ts, discardLogger(), ScopeProfile)

	var captured model.UserInfo
	rec := doRequest(t, mw, "", &captured)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalid_grant", body["error"])
	assert.Equal(t, "Token missing. Access token is required to serve this request", body["message"])
	assert.Empty(t, captured.ID, "handler must not run without a token")
}

func TestRequireScopes_MalformedAuthorizationHeader(t *testing.T) {
	ts := newTestTokenService(t, nil)
	mw := RequireScopes(ts, discardLogger(), ScopeProfile)

	var captured model.UserInfo
	rec := doRequest(t, mw, "Basic dXNlcjpwYXNz", &captured)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireScopes_InvalidToken(t *testing.T) {
	ts := newTestTokenService(t, nil)
	mw := RequireScopes(ts, discardLogger(), ScopeProfile)

	var captured model.UserInfo
	rec := doRequest(t, mw, "Bearer not-a-real-token", &captured)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalid_grant", body["error"])
	assert.Equal(t, "Invalid Token", body["message"])
}

func TestRequireScopes_InsufficientScope(t *testing.T) {
	ts := newTestTokenService(t, nil)
	mw := RequireScopes(ts, discardLogger(), ScopeProfile)

	// Token granted read+write only, endpoint wants profile
	token, err := ts.IssueAccessToken("user-123", "a@b.com", NewScopeSet(ScopeRead, ScopeWrite))
	require.NoError(t, err)

	var captured model.UserInfo
	rec := doRequest(t, mw, "Bearer "+token, &captured)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalid_scope", body["error"])
	assert.Equal(t, "Invalid scope. Access denied.", body["message"])
	assert.Empty(t, captured.ID)
}

func TestRequireScopes_SufficientScope(t *testing.T) {
	ts := newTestTokenService(t, nil)
	mw := RequireScopes(ts, discardLogger(), ScopeProfile)

	token, err := ts.IssueAccessToken("user-123", "a@b.com", NewScopeSet(ScopeRead, ScopeWrite, ScopeProfile))
	require.NoError(t, err)

	var captured model.UserInfo
	rec := doRequest(t, mw, "Bearer "+token, &captured)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", captured.ID)
	assert.Equal(t, "a@b.com", captured.Email)
}

func TestRequireScopes_NoRequiredScopes(t *testing.T) {
	ts := newTestTokenService(t, nil)
	mw := RequireScopes(ts, discardLogger()) // any valid token passes

	token, err := ts.IssueAccessToken("user-123", "a@b.com", NewScopeSet(ScopeRead))
	require.NoError(t, err)

	var captured model.UserInfo
	rec := doRequest(t, mw, "Bearer "+token, &captured)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", captured.ID)
}

func TestRequireScopes_ExpiredTokenDetail(t *testing.T) {
	repo := &fakeRefreshTokenRepo{}
	ts, err := NewTokenService(testIssuer, testAccessSecret, testRefreshSecret,
		-time.Minute, 30*24*time.Hour, repo)
	require.NoError(t, err)

	token, err := ts.IssueAccessToken("user-123", "a@b.com", nil)
	require.NoError(t, err)

	mw := RequireScopes(ts, discardLogger(), ScopeProfile)
	var captured model.UserInfo
	rec := doRequest(t, mw, "Bearer "+token, &captured)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "invalid_grant", body["error"])
	assert.Contains(t, body, "expiredAt")
}

func TestUserInfoFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := UserInfoFromContext(req.Context())
	assert.False(t, ok)
}
