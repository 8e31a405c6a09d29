// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Sentinel errors. Every error returned by this package and its storage
// implementations wraps exactly one of these, so callers can match with
// errors.Is regardless of the oops code attached on top.
var (
	// ErrInvalidInput is returned when a required field is empty after trimming.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound is returned by stores when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoSuchAccount is the internal cause of a login against an unknown email.
	ErrNoSuchAccount = errors.New("no such account")

	// ErrWrongPassword is the internal cause of a login with a bad password.
	ErrWrongPassword = errors.New("wrong password")

	// ErrInvalidCredentials is what callers see for either login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUnauthenticated is returned by the access gate when no session is active.
	ErrUnauthenticated = errors.New("not logged in")

	// ErrStorage is returned when the backing store is unavailable or faulted.
	ErrStorage = errors.New("storage failure")
)

// Error codes attached with oops.Code.
const (
	CodeInvalidInput       = "AUTH_INVALID_INPUT"
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeStorage            = "STORAGE_FAILED"
	CodeStorageTimeout     = "STORAGE_TIMEOUT"
)

// Kind classifies an error returned by the auth core.
type Kind int

// Error kinds.
const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindDuplicateEmail
	KindInvalidCredentials
	KindUnauthenticated
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindDuplicateEmail:
		return "DuplicateEmail"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindStorage:
		return "StorageError"
	default:
		return "Unknown"
	}
}

// KindOf reports which kind of failure err represents.
// A nil error is KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrDuplicateEmail):
		return KindDuplicateEmail
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrNoSuchAccount),
		errors.Is(err, ErrWrongPassword):
		return KindInvalidCredentials
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrStorage),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindStorage
	default:
		return KindUnknown
	}
}

// StorageError wraps a store fault as ErrStorage, keeping err in the chain.
// Errors that already carry ErrStorage are only annotated.
func StorageError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) {
		return oops.With("operation", operation).Wrap(err)
	}
	code := CodeStorage
	if errors.Is(err, context.DeadlineExceeded) {
		code = CodeStorageTimeout
	}
	return oops.Code(code).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStorage, err))
}
