package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// TokenRepo persists the refresh-token slot (single 'refresh_token_hash'
// column on the users row).  Writing the column replaces whatever was
// there, so at most one refresh token per user is ever valid.
type TokenRepo struct{ DB *sqlx.DB }

func NewTokenRepo(db *sqlx.DB) *TokenRepo { return &TokenRepo{DB: db} }

// SetRefreshTokenHash stores hash in the user's slot; an empty hash clears
// it.  Returns ErrNotFound if the user does not exist.
func (r *TokenRepo) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token_hash=?, updated_at=? WHERE id=?",
		hash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return affected(res)
}

// RefreshTokenHash returns the slot value, empty when logged out.
func (r *TokenRepo) RefreshTokenHash(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.DB.GetContext(ctx, &hash,
		"SELECT refresh_token_hash FROM users WHERE id=? LIMIT 1", userID)
	return hash, notFound(err)
}
