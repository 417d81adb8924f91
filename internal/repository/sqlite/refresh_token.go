package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/auth-service/internal/model"
	"github.com/sakif/auth-service/internal/repository"
)

// compile-time check that *DB implements repository.RefreshTokenRepository
var _ repository.RefreshTokenRepository = (*DB)(nil)

// CreateRefreshToken persists an issued refresh token. IssuedAt/UpdatedAt
// are stamped here; the caller provides UserID, Token and ExpiresAt.
//
// The foreign key on user_id means the owner must exist — issuing a
// refresh token for an unknown user is a bug, and the store rejects it.
func (db *DB) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	now := time.Now()
	token.IssuedAt = now
	token.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO refresh_token (user_id, refresh_token, expires_at, is_revoked, issued_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.IsRevoked,
		token.IssuedAt,
		token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting refresh token for user %s: %w", token.UserID, err)
	}

	return nil
}

// GetByToken looks a refresh token up by its composite (userID, token)
// key. Returns repository.ErrNotFound when no row matches.
func (db *DB) GetByToken(ctx context.Context, userID, tokenStr string) (*model.RefreshToken, error) {
	var rt model.RefreshToken

	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, refresh_token, expires_at, is_revoked, issued_at, updated_at
		 FROM refresh_token WHERE user_id = ? AND refresh_token = ?`,
		userID, tokenStr,
	).Scan(
		&rt.UserID,
		&rt.Token,
		&rt.ExpiresAt,
		&rt.IsRevoked,
		&rt.IssuedAt,
		&rt.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: getting refresh token for user %s: %w", userID, err)
	}

	return &rt, nil
}
