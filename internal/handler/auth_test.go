package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/auth-service/internal/auth"
	"github.com/sakif/auth-service/internal/repository/sqlite"
	"github.com/sakif/auth-service/internal/service"
)

// newTestServer wires the real stack — in-memory sqlite, token service,
// auth service, handler, chi router with the authorization middleware —
// and returns an httptest server over it. This is the closest thing to
// running the service for real that a unit test can get.
func newTestServer(t *testing.T) (*httptest.Server, *auth.TokenService) {
	return newTestServerTTL(t, time.Hour)
}

func newTestServerTTL(t *testing.T, accessTTL time.Duration) (*httptest.Server, *auth.TokenService) {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := auth.NewTokenService(
		"http://localhost:8080",
		"access-secret-at-least-16-chars",
		"refresh-secret-at-least-16-char",
		accessTTL, 30*24*time.Hour,
		db,
	)
	require.NoError(t, err)

	authService := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(4), logger)
	h := NewAuthHandler(authService, logger)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/token", h.HandleToken)
		r.Post("/logout", h.HandleLogout)
		r.With(auth.RequireScopes(tokens, logger, auth.ScopeProfile)).
			Get("/userinfo", h.HandleUserInfo)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, tokens
}

func postJSON(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeJSON(t, resp)
}

func postForm(t *testing.T, srv *httptest.Server, path string, form url.Values) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.PostForm(srv.URL+path, form)
	require.NoError(t, err)
	return resp, decodeJSON(t, resp)
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func registerUser(t *testing.T, srv *httptest.Server, email, password string) map[string]any {
	t.Helper()
	resp, body := postJSON(t, srv, "/auth/register",
		`{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body
}

// ---------------------------------------------------------------------
// POST /auth/register
// ---------------------------------------------------------------------

func TestRegister_Created(t *testing.T) {
	srv, _ := newTestServer(t)

	body := registerUser(t, srv, "a@b.com", "longenough")

	assert.Equal(t, float64(201), body["status_code"])
	assert.Equal(t, "bearer", body["token_type"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])

	userinfo, ok := body["userinfo"].(map[string]any)
	require.True(t, ok, "userinfo missing: %v", body)
	assert.Equal(t, "a@b.com", userinfo["email"])
	assert.NotEmpty(t, userinfo["id"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv, _ := newTestServer(t)

	registerUser(t, srv, "a@b.com", "longenough")
	resp, body := postJSON(t, srv, "/auth/register", `{"email":"a@b.com","password":"longenough"}`)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "user_exists", body["error"])
	assert.Equal(t, "User already exists", body["message"])
}

func TestRegister_InvalidBody(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "this is not json"},
		{"missing email", `{"password":"longenough"}`},
		{"bad email", `{"email":"not-an-email","password":"longenough"}`},
		{"short password", `{"email":"a@b.com","password":"short"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := postJSON(t, srv, "/auth/register", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid_request", body["error"])
		})
	}
}

func TestRegister_TrimsWhitespace(t *testing.T) {
	srv, _ := newTestServer(t)

	body := registerUser(t, srv, "  spaced@b.com  ", "longenough")
	userinfo := body["userinfo"].(map[string]any)
	assert.Equal(t, "spaced@b.com", userinfo["email"])
}

// ---------------------------------------------------------------------
// POST /auth/token
// ---------------------------------------------------------------------

func TestToken_PasswordGrant(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "a@b.com", "longenough")

	resp, body := postForm(t, srv, "/auth/token", url.Values{
		"grant_type": {"password"},
		"email":      {"a@b.com"},
		"password":   {"longenough"},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bearer", body["token_type"])
	assert.Equal(t, float64(3600), body["expires_in"])
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])

	userinfo := body["userinfo"].(map[string]any)
	assert.Equal(t, "a@b.com", userinfo["email"])
}

func TestToken_PasswordGrant_EnumerationResistance(t *testing.T) {
	srv, _ := newTestServer(t)
	registerUser(t, srv, "a@b.com", "longenough")

	unknownResp, unknownBody := postForm(t, srv, "/auth/token", url.Values{
		"grant_type": {"password"},
		"email":      {"nobody@b.com"},
		"password":   {"longenough"},
	})
	wrongResp, wrongBody := postForm(t, srv, "/auth/token", url.Values{
		"grant_type": {"password"},
		"email":      {"a@b.com"},
		"password":   {"wrongpassword"},
	})

	// Unknown email and wrong password must be byte-identical failures
	assert.Equal(t, http.StatusBadRequest, unknownResp.StatusCode)
	assert.Equal(t, wrongResp.StatusCode, unknownResp.StatusCode)
	assert.Equal(t, wrongBody, unknownBody)
	assert.Equal(t, "invalid_credentials", wrongBody["error"])
	assert.Equal(t, "Invalid credentials", wrongBody["message"])
}

func TestToken_ExpiresInTracksConfiguredTTL(t *testing.T) {
	srv, _ := newTestServerTTL(t, 15*time.Minute)
	registerUser(t, srv, "a@b.com", "longenough")

	resp, body := postForm(t, srv, "/auth/token", url.Values{
		"grant_type": {"password"},
		"email":      {"a@b.com"},
		"password":   {"longenough"},
	})

	// expires_in must follow the configured lifetime, not a fixed hour
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(900), body["expires_in"])
}

func TestToken_RefreshTokenGrant(t *testing.T) {
	srv, _ := newTestServer(t)
	registered := registerUser(t, srv, "a@b.com", "longenough")
	refreshToken := registered["refresh_token"].(string)

	resp, body := postForm(t, srv, "/auth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["access_token"])
	assert.Equal(t, float64(3600), body["expires_in"])
	// The refresh grant returns a new access token only
	assert.NotContains(t, body, "refresh_token")
	assert.NotContains(t, body, "userinfo")
}

func TestToken_RefreshTokenGrant_AccessTokenRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	registered := registerUser(t, srv, "a@b.com", "longenough")
	accessToken := registered["access_token"].(string)

	// An access token is signed with the other secret — must not pass
	resp, body := postForm(t, srv, "/auth/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {accessToken},
	})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestToken_UnknownGrantType(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postForm(t, srv, "/auth/token", url.Values{
		"grant_type": {"client_credentials"},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_grant", body["error"])
	assert.Equal(t, "Invalid grant", body["message"])
}

func TestToken_MissingConditionalFields(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postForm(t, srv, "/auth/token", url.Values{
		"grant_type": {"password"},
		"email":      {"a@b.com"},
		// password missing
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", body["error"])
}

// ---------------------------------------------------------------------
// GET /auth/userinfo
// ---------------------------------------------------------------------

func getUserInfo(t *testing.T, srv *httptest.Server, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/auth/userinfo", nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp, decodeJSON(t, resp)
}

func TestUserInfo_EndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)
	registered := registerUser(t, srv, "a@b.com", "longenough")
	accessToken := registered["access_token"].(string)

	resp, body := getUserInfo(t, srv, accessToken)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(200), body["status_code"])
	assert.Equal(t, "a@b.com", body["email"])
	userinfo := registered["userinfo"].(map[string]any)
	assert.Equal(t, userinfo["id"], body["id"])
}

func TestUserInfo_MissingToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := getUserInfo(t, srv, "")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_grant", body["error"])
}

func TestUserInfo_InsufficientScope(t *testing.T) {
	srv, tokens := newTestServer(t)
	registered := registerUser(t, srv, "a@b.com", "longenough")
	userID := registered["userinfo"].(map[string]any)["id"].(string)

	// A token without the profile scope must be rejected with 403
	narrow, err := tokens.IssueAccessToken(userID, "a@b.com", auth.NewScopeSet(auth.ScopeRead, auth.ScopeWrite))
	require.NoError(t, err)

	resp, body := getUserInfo(t, srv, narrow)

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "invalid_scope", body["error"])
	assert.Equal(t, "Invalid scope. Access denied.", body["message"])
}

func TestUserInfo_DeletedUser(t *testing.T) {
	srv, tokens := newTestServer(t)

	// A validly signed token for a user the store has never seen
	ghost, err := tokens.IssueAccessToken("ghost-id", "ghost@b.com", nil)
	require.NoError(t, err)

	resp, body := getUserInfo(t, srv, ghost)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "resource_not_found", body["error"])
	assert.Equal(t, "User Info could not be found", body["message"])
}

// ---------------------------------------------------------------------
// POST /auth/logout
// ---------------------------------------------------------------------

func TestLogout_NotImplemented(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/auth/logout", "application/json", nil)
	require.NoError(t, err)
	body := decodeJSON(t, resp)

	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "Method not implemented", body["message"])
}
