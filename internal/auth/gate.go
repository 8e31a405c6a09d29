// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// SessionLookup resolves a session handle to its principal.
// SessionManager satisfies it.
type SessionLookup interface {
	Lookup(ctx context.Context, handle string) (Principal, error)
}

// Gate guards protected operations behind an active session.
type Gate struct {
	sessions SessionLookup
}

// NewGate creates a Gate backed by sessions.
func NewGate(sessions SessionLookup) (*Gate, error) {
	if sessions == nil {
		return nil, oops.Code("GATE_INVALID").Errorf("session lookup is required")
	}
	return &Gate{sessions: sessions}, nil
}

// RequireSession returns the principal for handle or fails with ErrUnauthenticated.
// It performs exactly one session lookup. Store faults are returned as-is so
// callers can tell an outage from a missing login.
func (g *Gate) RequireSession(ctx context.Context, handle string) (Principal, error) {
	principal, err := g.sessions.Lookup(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return Principal{}, err
		}
		return Principal{}, oops.With("operation", "require session").Wrap(err)
	}
	return principal, nil
}

// Guard runs op only when handle belongs to an active session.
// op never starts if the gate rejects the caller.
func Guard[T any](ctx context.Context, g *Gate, handle string, op func(context.Context, Principal) (T, error)) (T, error) {
	principal, err := g.RequireSession(ctx, handle)
	if err != nil {
		var zero T
		return zero, err
	}
	return op(WithPrincipal(ctx, principal), principal)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying principal.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFrom returns the principal stored in ctx by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(Principal)
	return principal, ok
}
