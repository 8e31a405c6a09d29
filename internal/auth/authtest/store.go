// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package authtest provides in-memory auth collaborators for tests.
package authtest

import (
	"context"
	"sync"

	"github.com/samber/oops"

	"github.com/Srithwak/Audio-Draft/internal/auth"
)

// CredentialStore is an in-memory auth.CredentialStore.
// Email uniqueness is checked and recorded under one lock, matching the
// atomicity of the database constraint.
type CredentialStore struct {
	mu      sync.Mutex
	byEmail map[string]auth.UserIdentity
}

// NewCredentialStore creates an empty CredentialStore.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{byEmail: make(map[string]auth.UserIdentity)}
}

// Create stores identity unless its email is taken.
func (s *CredentialStore) Create(ctx context.Context, identity *auth.UserIdentity) error {
	if err := ctx.Err(); err != nil {
		return auth.StorageError("create identity", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[identity.Email]; taken {
		return oops.Code(auth.CodeDuplicateEmail).
			With("email", identity.Email).
			Wrap(auth.ErrDuplicateEmail)
	}
	s.byEmail[identity.Email] = *identity
	return nil
}

// FindByEmail returns a copy of the identity registered under email.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*auth.UserIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, auth.StorageError("find identity by email", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byEmail[email]
	if !ok {
		return nil, oops.Code("IDENTITY_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return &identity, nil
}

// Len returns the number of stored identities.
func (s *CredentialStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byEmail)
}

var _ auth.CredentialStore = (*CredentialStore)(nil)
