// JWT issuance and verification.
//
// TWO TOKENS, TWO SECRETS:
// Access tokens are short-lived, stateless and scope-bearing — a request
// can be authorized from the token alone, no DB lookup. Refresh tokens are
// long-lived and PERSISTED at issuance so they can later be audited or
// revoked. Each kind is signed with its own HMAC secret; verifying a
// refresh token with the access secret (or vice versa) fails the signature
// check, so one kind can never be replayed as the other.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"...","scope":"read write profile",...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sakif/auth-service/internal/apperror"
	"github.com/sakif/auth-service/internal/model"
	"github.com/sakif/auth-service/internal/repository"
)

// TokenService issues and verifies the service's JWTs.
//
// It owns both HMAC secrets and the refresh-token store. Issuer, secrets
// and lifetimes all arrive through the constructor — nothing here reads
// the environment.
type TokenService struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	refreshTokens repository.RefreshTokenRepository
}

// NewTokenService creates a TokenService.
//
// Secrets shorter than 16 bytes are rejected: an HMAC key that short is
// brute-forceable, and a typo'd empty secret would otherwise sign
// perfectly valid-looking tokens.
func NewTokenService(
	issuer, accessSecret, refreshSecret string,
	accessTTL, refreshTTL time.Duration,
	refreshTokens repository.RefreshTokenRepository,
) (*TokenService, error) {
	if len(accessSecret) < 16 {
		return nil, errors.New("auth: access token secret must be at least 16 characters")
	}
	if len(refreshSecret) < 16 {
		return nil, errors.New("auth: refresh token secret must be at least 16 characters")
	}
	return &TokenService{
		issuer:        issuer,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		refreshTokens: refreshTokens,
	}, nil
}

// Claims is the JWT payload for both token kinds.
//
// RegisteredClaims covers sub/iss/jti/exp/iat. Scope and UserInfo are our
// custom claims: access tokens carry both; refresh tokens carry only a
// minimal userinfo {id} and no scope.
type Claims struct {
	jwt.RegisteredClaims
	Scope    string         `json:"scope,omitempty"`
	UserInfo model.UserInfo `json:"userinfo"`
}

// AccessTokenPayload is the decoded result of a successful verification:
// the granted scopes and the identity the token was issued to.
type AccessTokenPayload struct {
	Scope    ScopeSet
	UserInfo model.UserInfo
}

// IssueAccessToken builds and signs an access token for the given user.
//
// An empty scope set means "everything": read write profile. The jti is a
// fresh UUID per token, so two tokens issued in the same second for the
// same user are still distinct strings.
func (s *TokenService) IssueAccessToken(userID, email string, scopes ScopeSet) (string, error) {
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Scope:    scopes.String(),
		UserInfo: model.UserInfo{ID: userID, Email: email},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.accessSecret)
	if err != nil {
		return "", fmt.Errorf("auth: signing access token: %w", err)
	}

	return signed, nil
}

// IssueRefreshToken builds, signs and PERSISTS a refresh token.
//
// The signed string itself is stored alongside the owner and expiry; the
// returned value is exactly what went into the store. The row's is_revoked
// flag starts false and no current flow flips it.
func (s *TokenService) IssueRefreshToken(ctx context.Context, userID string) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.refreshTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserInfo: model.UserInfo{ID: userID},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("auth: signing refresh token: %w", err)
	}

	record := &model.RefreshToken{
		UserID:    userID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}
	if err := s.refreshTokens.CreateRefreshToken(ctx, record); err != nil {
		return "", fmt.Errorf("auth: persisting refresh token for user %s: %w", userID, err)
	}

	return signed, nil
}

// Verify parses and verifies a token against the given secret and decodes
// its payload. It touches no persisted state.
//
// ERROR MAPPING (exhaustive):
//   - expired signature  → 401 invalid_grant "Token Expired. Please
//     reauthorize." with an expiredAt detail
//   - anything else the parser rejects (tampered signature, wrong secret,
//     malformed string, wrong algorithm) → 401 invalid_grant "Invalid Token"
//   - a scope claim outside the enumerated set → plain error, left for the
//     caller to treat as unhandled (it means a token WE signed is corrupt)
func (s *TokenService) Verify(tokenStr string, secret []byte) (*AccessTokenPayload, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(token *jwt.Token) (any, error) {
			// Reject tokens that aren't signed with HMAC — prevents the
			// classic alg-confusion attack where "none" slips through.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			apiErr := apperror.New(401, apperror.CodeInvalidGrant, "Token Expired. Please reauthorize.")
			if claims.ExpiresAt != nil {
				apiErr.WithData("expiredAt", claims.ExpiresAt.Time)
			}
			return nil, apiErr
		}
		return nil, apperror.New(401, apperror.CodeInvalidGrant, "Invalid Token")
	}

	scopes, err := ParseScopes(claims.Scope)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding scope claim: %w", err)
	}

	return &AccessTokenPayload{
		Scope:    scopes,
		UserInfo: claims.UserInfo,
	}, nil
}

// VerifyAccessToken verifies a token against the access secret.
// AccessTokenTTL reports the configured access token lifetime, so the
// token endpoint's expires_in matches what IssueAccessToken signs.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) VerifyAccessToken(tokenStr string) (*AccessTokenPayload, error) {
	return s.Verify(tokenStr, s.accessSecret)
}

// VerifyRefreshToken verifies a token against the refresh secret.
func (s *TokenService) VerifyRefreshToken(tokenStr string) (*AccessTokenPayload, error) {
	return s.Verify(tokenStr, s.refreshSecret)
}
