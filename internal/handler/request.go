package handler

// Request DTOs with explicit validation.
//
// Each request shape is a struct with a Normalize step (trimming) and a
// Validate step that returns a typed 400 on the first rule violation.
// Plain methods instead of tag-driven reflection: the whole rule set for
// an endpoint is readable in one place.

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/sakif/auth-service/internal/apperror"
)

// Grant types accepted by POST /auth/token.
const (
	GrantTypePassword     = "password"
	GrantTypeRefreshToken = "refresh_token"
)

const minPasswordLength = 8

func invalidRequest(message string) *apperror.Error {
	return apperror.New(http.StatusBadRequest, apperror.CodeInvalidRequest, message)
}

// RegisterRequest is the JSON body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims surrounding whitespace from every field.
func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Password = strings.TrimSpace(r.Password)
}

// Validate checks the registration rules: a syntactically valid email and
// a password of at least 8 characters.
func (r *RegisterRequest) Validate() error {
	if r.Email == "" {
		return invalidRequest("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return invalidRequest("email must be a valid email address")
	}
	if r.Password == "" {
		return invalidRequest("password is required")
	}
	if len(r.Password) < minPasswordLength {
		return invalidRequest("password must be at least 8 characters")
	}
	return nil
}

// TokenRequest is the form-encoded body of POST /auth/token.
//
// Which fields are required depends on the grant type: password needs
// email+password, refresh_token needs the refresh token. An unknown
// grant_type is not a validation error here — the handler maps it to the
// invalid_grant contract.
type TokenRequest struct {
	GrantType    string
	Email        string
	Password     string
	RefreshToken string
}

// ParseTokenRequest reads the form-encoded token request from r.
func ParseTokenRequest(r *http.Request) (*TokenRequest, error) {
	if err := r.ParseForm(); err != nil {
		return nil, invalidRequest("request body must be form-encoded")
	}
	req := &TokenRequest{
		GrantType:    strings.TrimSpace(r.PostFormValue("grant_type")),
		Email:        strings.TrimSpace(r.PostFormValue("email")),
		Password:     strings.TrimSpace(r.PostFormValue("password")),
		RefreshToken: strings.TrimSpace(r.PostFormValue("refresh_token")),
	}
	return req, nil
}

// Validate checks the grant-type-conditional rules.
func (r *TokenRequest) Validate() error {
	if r.GrantType == "" {
		return invalidRequest("grant_type is required")
	}
	switch r.GrantType {
	case GrantTypePassword:
		if r.Email == "" {
			return invalidRequest("email is required for the password grant")
		}
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return invalidRequest("email must be a valid email address")
		}
		if r.Password == "" {
			return invalidRequest("password is required for the password grant")
		}
	case GrantTypeRefreshToken:
		if r.RefreshToken == "" {
			return invalidRequest("refresh_token is required for the refresh_token grant")
		}
	}
	return nil
}
