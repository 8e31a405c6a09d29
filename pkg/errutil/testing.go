// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error carrying code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	assert.Equal(t, code, Code(requireOops(t, err)))
}

// AssertErrorContext asserts that err carries key with value in its context.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	if assert.Contains(t, ctx, key) {
		assert.Equal(t, value, ctx[key], "context %q", key)
	}
}

// AssertNoErrorContext asserts that none of keys appear in err's context.
// Use it to check that secrets stay out of errors that get logged.
func AssertNoErrorContext(t *testing.T, err error, keys ...string) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	for _, key := range keys {
		assert.NotContains(t, ctx, key)
	}
}
