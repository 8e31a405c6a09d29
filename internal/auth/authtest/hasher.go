// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package authtest

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/Srithwak/Audio-Draft/internal/auth"
)

// FastHasher returns a real bcrypt hasher at the minimum cost.
func FastHasher() auth.PasswordHasher {
	h, err := auth.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}

// Services bundles a fully wired in-memory auth core.
type Services struct {
	Store         *CredentialStore
	Sessions      *auth.SessionManager
	Authenticator *auth.Authenticator
	Gate          *auth.Gate
}

// NewServices wires an Authenticator, SessionManager and Gate over
// in-memory stores and a fast hasher.
func NewServices(opts ...auth.AuthenticatorOption) *Services {
	store := NewCredentialStore()
	sessions, err := auth.NewSessionManager(auth.NewMemorySessionStore())
	if err != nil {
		panic(err)
	}
	authenticator, err := auth.NewAuthenticator(store, FastHasher(), sessions, opts...)
	if err != nil {
		panic(err)
	}
	gate, err := auth.NewGate(sessions)
	if err != nil {
		panic(err)
	}
	return &Services{
		Store:         store,
		Sessions:      sessions,
		Authenticator: authenticator,
		Gate:          gate,
	}
}
