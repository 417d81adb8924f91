// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// WHY string IDs?
// We generate our own opaque string ID (xid) at creation time, same scheme
// as every other record in the system. The email is the sign-in key and is
// UNIQUE at the database level — uniqueness is a store constraint, not an
// application-level check, so two concurrent registrations for the same
// email cannot both succeed.
//
// Password holds the bcrypt hash, never the plaintext. The json:"-" tag
// makes it impossible to leak through any handler that serializes a User.
type User struct {
	ID        string    `json:"id"    db:"id"`
	Email     string    `json:"email" db:"email"`
	Password  string    `json:"-"     db:"password"` // bcrypt hash
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserInfo is the public identity slice of a User: what goes into token
// claims and what /auth/userinfo returns. Never carries the password hash.
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Info returns the public identity of the user.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email}
}

// RefreshToken is a persisted long-lived credential.
//
// Identity is the composite (UserID, Token) — a user may hold any number of
// concurrent refresh tokens; nothing enforces a single session.
//
// IsRevoked exists for a future revocation flow (logout, rotation). No
// current flow reads it: it is written as false at issuance and never
// consulted afterwards.
type RefreshToken struct {
	UserID    string    `db:"user_id"`
	Token     string    `db:"refresh_token"` // the signed JWT string itself
	ExpiresAt time.Time `db:"expires_at"`
	IsRevoked bool      `db:"is_revoked"`
	IssuedAt  time.Time `db:"issued_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
