// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// SessionHandleBytes is the entropy of a session handle (64 hex chars).
const SessionHandleBytes = 32

// Principal identifies the caller behind an active session.
type Principal struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Session is one authenticated interaction context.
// The raw handle is never stored; stores key sessions by HashSessionHandle.
type Session struct {
	UserID    string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time // zero when sessions do not expire
}

// Principal returns the identity the session is bound to.
func (s *Session) Principal() Principal {
	return Principal{UserID: s.UserID, Username: s.Username}
}

// IsExpiredAt returns true if the session would be expired at t.
// Sessions without an expiry never expire.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && t.After(s.ExpiresAt)
}

// SessionStore holds sessions keyed by the digest of their handle.
type SessionStore interface {
	// Put stores a session under key.
	Put(ctx context.Context, key string, session *Session) error

	// Get returns the session stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Session, error)

	// Delete removes the session stored under key. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes all sessions expired at now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int64, error)
}

// GenerateSessionHandle creates an unguessable session handle.
func GenerateSessionHandle() (string, error) {
	buf := make([]byte, SessionHandleBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SESSION_HANDLE_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionHandleBytes).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSessionHandle computes the SHA256 hex digest used as the store key.
func HashSessionHandle(handle string) string {
	h := sha256.Sum256([]byte(handle))
	return hex.EncodeToString(h[:])
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionTTL makes sessions expire ttl after they are established.
// A zero ttl keeps the default of no expiry.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(m *SessionManager) {
		m.ttl = ttl
	}
}

// WithSessionClock overrides the clock used for creation and expiry times.
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.clock = clock
	}
}

// WithSessionLogger sets the logger used for store faults on lookup.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// SessionManager maps session handles to authenticated identities.
// One instance is created per process and shared by every caller.
type SessionManager struct {
	store  SessionStore
	ttl    time.Duration
	clock  func() time.Time
	logger *slog.Logger
}

// NewSessionManager creates a SessionManager over store.
func NewSessionManager(store SessionStore, opts ...SessionOption) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Code("SESSION_MANAGER_INVALID").Errorf("session store is required")
	}
	m := &SessionManager{
		store:  store,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.ttl < 0 {
		return nil, oops.Code("SESSION_MANAGER_INVALID").
			With("ttl", m.ttl.String()).
			Errorf("session ttl cannot be negative")
	}
	return m, nil
}

// TTL returns the session lifetime, zero meaning sessions never expire.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Establish creates a session for the identity and returns its handle.
func (m *SessionManager) Establish(ctx context.Context, userID, username string) (string, error) {
	if err := requireFields(field{"user_id", userID}, field{"username", username}); err != nil {
		return "", err
	}

	handle, err := GenerateSessionHandle()
	if err != nil {
		return "", err
	}

	now := m.clock()
	session := &Session{
		UserID:    userID,
		Username:  username,
		CreatedAt: now,
	}
	if m.ttl > 0 {
		session.ExpiresAt = now.Add(m.ttl)
	}

	if err := m.store.Put(ctx, HashSessionHandle(handle), session); err != nil {
		return "", oops.Code("SESSION_CREATE_FAILED").
			With("user_id", userID).
			Wrap(err)
	}
	return handle, nil
}

// Lookup returns the principal for handle.
// It fails with ErrUnauthenticated when no active session matches, and with a
// storage error when the store cannot answer.
func (m *SessionManager) Lookup(ctx context.Context, handle string) (Principal, error) {
	if handle == "" {
		return Principal{}, oops.Code(CodeUnauthenticated).Wrapf(ErrUnauthenticated, "no session handle")
	}

	key := HashSessionHandle(handle)
	session, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Principal{}, oops.Code(CodeUnauthenticated).Wrapf(ErrUnauthenticated, "unknown session")
	}
	if err != nil {
		return Principal{}, oops.With("operation", "lookup session").Wrap(err)
	}

	if session.IsExpiredAt(m.clock()) {
		if delErr := m.store.Delete(ctx, key); delErr != nil {
			m.logger.WarnContext(ctx, "failed to purge expired session", "error", delErr)
		}
		return Principal{}, oops.Code(CodeUnauthenticated).Wrapf(ErrUnauthenticated, "session expired")
	}

	return session.Principal(), nil
}

// Current returns the principal for handle, or false for an anonymous caller.
// Store faults are logged and read as anonymous.
func (m *SessionManager) Current(ctx context.Context, handle string) (Principal, bool) {
	principal, err := m.Lookup(ctx, handle)
	if err == nil {
		return principal, true
	}
	if !errors.Is(err, ErrUnauthenticated) {
		m.logger.ErrorContext(ctx, "session lookup failed", "error", err)
	}
	return Principal{}, false
}

// Terminate ends the session for handle. Terminating an unknown or already
// terminated handle succeeds; only store faults are returned.
func (m *SessionManager) Terminate(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}
	if err := m.store.Delete(ctx, HashSessionHandle(handle)); err != nil {
		return oops.Code("SESSION_DELETE_FAILED").Wrap(err)
	}
	return nil
}

// Active returns the number of stored sessions.
func (m *SessionManager) Active(ctx context.Context) (int64, error) {
	n, err := m.store.Count(ctx)
	if err != nil {
		return 0, oops.With("operation", "count sessions").Wrap(err)
	}
	return n, nil
}

// Sweep removes expired sessions from the store.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	if m.ttl == 0 {
		return 0, nil
	}
	n, err := m.store.DeleteExpired(ctx, m.clock())
	if err != nil {
		return 0, oops.Code("SESSION_SWEEP_FAILED").Wrap(err)
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
// It returns immediately when sessions do not expire.
func (m *SessionManager) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.ttl == 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				m.logger.WarnContext(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				m.logger.DebugContext(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}
