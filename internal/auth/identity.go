// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// UserIdentity is one registered principal.
// PasswordDigest never leaves the credential store boundary: the HTTP and
// CLI layers only ever see a Summary.
type UserIdentity struct {
	ID             string
	Username       string
	Email          string
	PasswordDigest string
	CreatedAt      time.Time
}

// Summary is the non-sensitive view of a UserIdentity returned to callers.
type Summary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Summary returns the public fields of the identity.
func (u *UserIdentity) Summary() Summary {
	return Summary{ID: u.ID, Username: u.Username}
}

// NewUserIdentity creates a validated UserIdentity with a fresh ID.
// All fields are trimmed; any that end up empty fail with ErrInvalidInput.
func NewUserIdentity(username, email, digest string) (*UserIdentity, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := requireFields(field{"username", username}, field{"email", email}); err != nil {
		return nil, err
	}
	if digest == "" {
		return nil, oops.Code(CodeInvalidInput).
			With("field", "password_digest").
			Wrapf(ErrInvalidInput, "password digest cannot be empty")
	}

	return &UserIdentity{
		ID:             ulid.Make().String(),
		Username:       username,
		Email:          email,
		PasswordDigest: digest,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}, nil
}

type field struct {
	name  string
	value string
}

// requireFields fails on the first field that is empty after trimming.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return oops.Code(CodeInvalidInput).
				With("field", f.name).
				Wrapf(ErrInvalidInput, "%s is required", f.name)
		}
	}
	return nil
}

// CredentialStore persists user identities.
type CredentialStore interface {
	// Create stores a new identity. It is atomic and fails with
	// ErrDuplicateEmail when the email is already present.
	Create(ctx context.Context, identity *UserIdentity) error

	// FindByEmail retrieves an identity by exact email.
	// Returns ErrNotFound if no identity has the given email.
	FindByEmail(ctx context.Context, email string) (*UserIdentity, error)
}
