// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/pkg/errutil"
)

func TestNewUserIdentity(t *testing.T) {
	t.Run("creates identity with ulid and trimmed fields", func(t *testing.T) {
		before := time.Now().UTC().Add(-time.Second)
		u, err := auth.NewUserIdentity("  alice ", " a@x.io ", "$2a$04$digest")
		require.NoError(t, err)

		_, parseErr := ulid.Parse(u.ID)
		assert.NoError(t, parseErr)
		assert.Equal(t, "alice", u.Username)
		assert.Equal(t, "a@x.io", u.Email)
		assert.Equal(t, "$2a$04$digest", u.PasswordDigest)
		assert.True(t, u.CreatedAt.After(before))
		assert.Equal(t, time.UTC, u.CreatedAt.Location())
	})

	t.Run("ids are unique", func(t *testing.T) {
		a, err := auth.NewUserIdentity("a", "a@x.io", "d")
		require.NoError(t, err)
		b, err := auth.NewUserIdentity("a", "a@x.io", "d")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	tests := []struct {
		name      string
		username  string
		email     string
		digest    string
		wantField string
	}{
		{name: "empty username", username: "", email: "a@x.io", digest: "d", wantField: "username"},
		{name: "whitespace username", username: "   ", email: "a@x.io", digest: "d", wantField: "username"},
		{name: "empty email", username: "alice", email: "\t", digest: "d", wantField: "email"},
		{name: "empty digest", username: "alice", email: "a@x.io", digest: "", wantField: "password_digest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewUserIdentity(tt.username, tt.email, tt.digest)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrInvalidInput)
			errutil.AssertErrorCode(t, err, auth.CodeInvalidInput)
			errutil.AssertErrorContext(t, err, "field", tt.wantField)
		})
	}
}

func TestUserIdentity_Summary(t *testing.T) {
	u, err := auth.NewUserIdentity("alice", "a@x.io", "secret-digest")
	require.NoError(t, err)

	s := u.Summary()
	assert.Equal(t, auth.Summary{ID: u.ID, Username: "alice"}, s)
}
