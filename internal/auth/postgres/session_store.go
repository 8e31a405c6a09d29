// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/internal/store"
)

// SessionStore implements auth.SessionStore using PostgreSQL so sessions
// survive a restart. Rows are keyed by the handle digest.
type SessionStore struct {
	db   store.DB
	opts options
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db store.DB, opts ...Option) *SessionStore {
	return &SessionStore{db: db, opts: newOptions(opts)}
}

// Put stores session under key, replacing any previous row.
func (s *SessionStore) Put(ctx context.Context, key string, session *auth.Session) error {
	if session == nil {
		return oops.Code("SESSION_INVALID").Errorf("session cannot be nil")
	}
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (token_hash, user_id, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_hash) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    username = EXCLUDED.username,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
	`,
		key,
		session.UserID,
		session.Username,
		session.CreatedAt,
		nullableTime(session.ExpiresAt),
	)
	if err != nil {
		return auth.StorageError("insert session", oops.With("user_id", session.UserID).Wrap(err))
	}
	return nil
}

// Get returns the session stored under key.
func (s *SessionStore) Get(ctx context.Context, key string) (*auth.Session, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var (
		session   auth.Session
		expiresAt *time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT user_id, username, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, key).Scan(&session.UserID, &session.Username, &session.CreatedAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, auth.StorageError("select session", err)
	}
	if expiresAt != nil {
		session.ExpiresAt = *expiresAt
	}
	return &session, nil
}

// Delete removes the session stored under key. Missing rows are not an error.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, key); err != nil {
		return auth.StorageError("delete session", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	result, err := s.db.Exec(ctx, `
		DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at < $1
	`, now)
	if err != nil {
		return 0, auth.StorageError("delete expired sessions", err)
	}
	return result.RowsAffected(), nil
}

// Count returns the number of stored sessions.
func (s *SessionStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, auth.StorageError("count sessions", err)
	}
	return n, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
