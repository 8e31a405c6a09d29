// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package auth provides credential management and session authentication
// for Audio-Draft.
//
// # Components
//
//   - CredentialStore - persists UserIdentity records; email is unique
//   - Authenticator - register, login, logout and whoami
//   - SessionManager - maps opaque session handles to a Principal
//   - Gate - rejects protected operations without an active session
//
// Storage implementations live in the postgres subpackage. Sessions are
// held in a MemorySessionStore unless a durable SessionStore is configured.
//
// # Errors
//
// Every failure wraps one of the package sentinels (ErrInvalidInput,
// ErrDuplicateEmail, ErrInvalidCredentials, ErrUnauthenticated, ErrStorage)
// and carries an oops code. Use KindOf to switch on the failure kind.
package auth
