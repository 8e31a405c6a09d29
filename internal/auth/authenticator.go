// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Outcomes reported to a Recorder.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeDuplicateEmail     = "duplicate_email"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// Recorder receives authentication outcomes, typically to feed metrics.
type Recorder interface {
	Registration(outcome string)
	Login(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Registration(string) {}
func (nopRecorder) Login(string)        {}

// SessionIssuer is the session side of authentication.
// SessionManager satisfies it.
type SessionIssuer interface {
	Establish(ctx context.Context, userID, username string) (string, error)
	Current(ctx context.Context, handle string) (Principal, bool)
	Terminate(ctx context.Context, handle string) error
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Handle   string
	UserID   string
	Username string
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(recorder Recorder) AuthenticatorOption {
	return func(a *Authenticator) {
		a.recorder = recorder
	}
}

// Authenticator registers accounts, verifies credentials and drives sessions.
type Authenticator struct {
	store    CredentialStore
	hasher   PasswordHasher
	sessions SessionIssuer
	logger   *slog.Logger
	recorder Recorder

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(store CredentialStore, hasher PasswordHasher, sessions SessionIssuer, opts ...AuthenticatorOption) (*Authenticator, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("session issuer is required")
	}

	a := &Authenticator{
		store:    store,
		hasher:   hasher,
		sessions: sessions,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("logger cannot be nil")
	}
	if a.recorder == nil {
		a.recorder = nopRecorder{}
	}
	return a, nil
}

// Register creates an account and returns its public summary.
func (a *Authenticator) Register(ctx context.Context, username, email, password string) (Summary, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if err := requireFields(
		field{"username", username},
		field{"email", email},
		field{"password", password},
	); err != nil {
		a.recorder.Registration(OutcomeInvalidInput)
		return Summary{}, err
	}

	digest, err := a.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			a.recorder.Registration(OutcomeInvalidInput)
			return Summary{}, err
		}
		a.recorder.Registration(OutcomeError)
		return Summary{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	identity, err := NewUserIdentity(username, email, digest)
	if err != nil {
		a.recorder.Registration(OutcomeInvalidInput)
		return Summary{}, err
	}

	if err := a.store.Create(ctx, identity); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			a.recorder.Registration(OutcomeDuplicateEmail)
			a.logger.InfoContext(ctx, "registration rejected", "reason", "duplicate_email", "email", email)
			return Summary{}, err
		}
		a.recorder.Registration(OutcomeError)
		a.logger.ErrorContext(ctx, "registration failed", "email", email, "error", err)
		return Summary{}, StorageError("create identity", err)
	}

	a.recorder.Registration(OutcomeSuccess)
	a.logger.InfoContext(ctx, "user registered", "user_id", identity.ID, "username", identity.Username)
	return identity.Summary(), nil
}

// Login verifies credentials and establishes a session.
// An unknown email and a wrong password fail identically with
// ErrInvalidCredentials; the distinction is only logged and kept in the
// error's "reason" context. The password is verified even when the account
// does not exist so both paths cost the same.
func (a *Authenticator) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)

	if err := requireFields(field{"email", email}, field{"password", password}); err != nil {
		a.recorder.Login(OutcomeInvalidInput)
		return LoginResult{}, err
	}

	identity, lookupErr := a.store.FindByEmail(ctx, email)
	exists := lookupErr == nil
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		a.recorder.Login(OutcomeError)
		a.logger.ErrorContext(ctx, "login lookup failed", "email", email, "error", lookupErr)
		return LoginResult{}, StorageError("find identity by email", lookupErr)
	}

	digest := a.dummy()
	if exists {
		digest = identity.PasswordDigest
	}

	valid, verifyErr := a.hasher.Verify(password, digest)
	if verifyErr != nil && exists {
		a.recorder.Login(OutcomeError)
		a.logger.ErrorContext(ctx, "stored digest unreadable", "user_id", identity.ID, "error", verifyErr)
		return LoginResult{}, StorageError("verify password", verifyErr)
	}

	var cause error
	switch {
	case !exists:
		cause = ErrNoSuchAccount
	case !valid:
		cause = ErrWrongPassword
	}
	if cause != nil {
		a.recorder.Login(OutcomeInvalidCredentials)
		a.logger.InfoContext(ctx, "login rejected", "reason", cause.Error(), "email", email)
		return LoginResult{}, invalidCredentials(cause)
	}

	handle, err := a.sessions.Establish(ctx, identity.ID, identity.Username)
	if err != nil {
		a.recorder.Login(OutcomeError)
		a.logger.ErrorContext(ctx, "session establish failed", "user_id", identity.ID, "error", err)
		return LoginResult{}, StorageError("establish session", err)
	}

	a.recorder.Login(OutcomeSuccess)
	a.logger.InfoContext(ctx, "user logged in", "user_id", identity.ID, "username", identity.Username)
	return LoginResult{
		Handle:   handle,
		UserID:   identity.ID,
		Username: identity.Username,
	}, nil
}

// Logout terminates the session for handle. It always acknowledges: unknown
// and already terminated handles are no-ops, and a session store fault is
// logged but not returned.
func (a *Authenticator) Logout(ctx context.Context, handle string) {
	if err := a.sessions.Terminate(ctx, handle); err != nil {
		a.logger.ErrorContext(ctx, "logout failed", "error", StorageError("terminate session", err))
	}
}

// WhoAmI returns the username behind handle, or false for an anonymous caller.
func (a *Authenticator) WhoAmI(ctx context.Context, handle string) (string, bool) {
	principal, ok := a.sessions.Current(ctx, handle)
	if !ok {
		return "", false
	}
	return principal.Username, true
}

func invalidCredentials(cause error) error {
	reason := "wrong_password"
	if errors.Is(cause, ErrNoSuchAccount) {
		reason = "no_such_account"
	}
	return oops.Code(CodeInvalidCredentials).
		With("reason", reason).
		Wrap(ErrInvalidCredentials)
}

// dummy returns a digest produced by the configured hasher for a random
// secret. It is verified against when the account does not exist.
func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		secret := make([]byte, 16)
		if _, err := rand.Read(secret); err != nil {
			a.logger.Warn("dummy digest unavailable", "error", err)
			return
		}
		digest, err := a.hasher.Hash(hex.EncodeToString(secret))
		if err != nil {
			a.logger.Warn("dummy digest unavailable", "error", err)
			return
		}
		a.dummyDigest = digest
	})
	return a.dummyDigest
}
