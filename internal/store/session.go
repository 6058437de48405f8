package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/snapcal/apiserver/types"
)

// SessionRepository handles persistence for bearer sessions.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a token-to-user mapping. Tokens are generated by the
// caller; multiple live sessions per user are allowed.
func (r *SessionRepository) Create(ctx context.Context, session types.Session) error {
	const query = `
		INSERT INTO sessions (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		session.Token,
		session.UserID,
		session.CreatedAt,
		session.ExpiresAt,
	)
	return err
}

// GetUserID resolves a token to its user id. A missing or expired token
// returns ErrNotFound; this is the unauthenticated signal, not a failure.
func (r *SessionRepository) GetUserID(ctx context.Context, token string) (string, error) {
	const query = `
		SELECT user_id
		FROM sessions
		WHERE token = $1 AND (expires_at IS NULL OR expires_at > $2)`
	var userID string
	err := r.db.QueryRowContext(ctx, query, token, time.Now()).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return userID, nil
}

// Delete revokes a token. Deleting an unknown token is a no-op.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	const query = `DELETE FROM sessions WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	return err
}
