// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/pkg/errutil"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auth.Kind
	}{
		{name: "nil", err: nil, want: auth.KindUnknown},
		{name: "plain", err: errors.New("boom"), want: auth.KindUnknown},
		{name: "invalid input", err: oops.Wrap(auth.ErrInvalidInput), want: auth.KindInvalidInput},
		{name: "duplicate email", err: fmt.Errorf("create: %w", auth.ErrDuplicateEmail), want: auth.KindDuplicateEmail},
		{name: "invalid credentials", err: auth.ErrInvalidCredentials, want: auth.KindInvalidCredentials},
		{name: "no such account", err: auth.ErrNoSuchAccount, want: auth.KindInvalidCredentials},
		{name: "wrong password", err: auth.ErrWrongPassword, want: auth.KindInvalidCredentials},
		{name: "unauthenticated", err: auth.ErrUnauthenticated, want: auth.KindUnauthenticated},
		{name: "storage", err: auth.StorageError("op", errors.New("refused")), want: auth.KindStorage},
		{name: "deadline", err: context.DeadlineExceeded, want: auth.KindStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.KindOf(tt.err))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "InvalidInput", auth.KindInvalidInput.String())
	assert.Equal(t, "DuplicateEmail", auth.KindDuplicateEmail.String())
	assert.Equal(t, "InvalidCredentials", auth.KindInvalidCredentials.String())
	assert.Equal(t, "Unauthenticated", auth.KindUnauthenticated.String())
	assert.Equal(t, "StorageError", auth.KindStorage.String())
	assert.Equal(t, "Unknown", auth.KindUnknown.String())
}

func TestStorageError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, auth.StorageError("op", nil))
	})

	t.Run("wraps cause and sentinel", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := auth.StorageError("find identity", cause)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrStorage)
		assert.ErrorIs(t, err, cause)
		errutil.AssertErrorCode(t, err, auth.CodeStorage)
		errutil.AssertErrorContext(t, err, "operation", "find identity")
	})

	t.Run("deadline gets timeout code", func(t *testing.T) {
		err := auth.StorageError("find identity", context.DeadlineExceeded)
		errutil.AssertErrorCode(t, err, auth.CodeStorageTimeout)
	})

	t.Run("does not double wrap", func(t *testing.T) {
		inner := auth.StorageError("inner", errors.New("refused"))
		outer := auth.StorageError("outer", inner)
		assert.ErrorIs(t, outer, auth.ErrStorage)
		errutil.AssertErrorCode(t, outer, auth.CodeStorage)
	})
}
