// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package postgres implements the auth stores on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/internal/store"
)

// DefaultOpTimeout bounds a single store operation.
const DefaultOpTimeout = 5 * time.Second

// Option configures a store.
type Option func(*options)

type options struct {
	opTimeout time.Duration
}

// WithOpTimeout bounds each operation. Zero disables the bound.
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		o.opTimeout = d
	}
}

func newOptions(opts []Option) options {
	o := options{opTimeout: DefaultOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.opTimeout)
}

// emailConstraint enforces email uniqueness on the users table.
const emailConstraint = "users_email_key"

// CredentialStore implements auth.CredentialStore using PostgreSQL.
// Email uniqueness is enforced by the users_email_key constraint.
type CredentialStore struct {
	db   store.DB
	opts options
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(db store.DB, opts ...Option) *CredentialStore {
	return &CredentialStore{db: db, opts: newOptions(opts)}
}

// Create inserts identity. A second identity with the same email fails with
// auth.ErrDuplicateEmail, no matter how many callers race.
func (s *CredentialStore) Create(ctx context.Context, identity *auth.UserIdentity) error {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO users (user_id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		identity.ID,
		identity.Username,
		identity.Email,
		identity.PasswordDigest,
		identity.CreatedAt,
	)
	if isUniqueViolation(err, emailConstraint) {
		return oops.Code(auth.CodeDuplicateEmail).
			With("email", identity.Email).
			Wrap(auth.ErrDuplicateEmail)
	}
	if err != nil {
		return auth.StorageError("insert user", err)
	}
	return nil
}

// FindByEmail retrieves an identity by exact email.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*auth.UserIdentity, error) {
	ctx, cancel := s.opts.bound(ctx)
	defer cancel()

	var u auth.UserIdentity
	err := s.db.QueryRow(ctx, `
		SELECT user_id, username, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordDigest, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("IDENTITY_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, auth.StorageError("select user by email", err)
	}
	return &u, nil
}

// isUniqueViolation reports whether err violates the named unique constraint.
// Other unique violations, such as a user_id collision, are storage faults.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		pgErr.ConstraintName == constraint
}

// Compile-time interface check.
var _ auth.CredentialStore = (*CredentialStore)(nil)
