// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/internal/auth/authtest"
	"github.com/Srithwak/Audio-Draft/internal/auth/mocks"
)

// logEntries decodes one JSON object per line.
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func findEntry(entries []map[string]any, msg string) map[string]any {
	for _, e := range entries {
		if e["msg"] == msg {
			return e
		}
	}
	return nil
}

func TestAuthenticator_Logging(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := authtest.NewServices(auth.WithLogger(logger))

	_, err := svc.Authenticator.Register(ctx, "alice", "a@x.io", "hunter2-secret")
	require.NoError(t, err)
	_, err = svc.Authenticator.Register(ctx, "alice", "a@x.io", "hunter2-secret")
	require.Error(t, err)
	_, err = svc.Authenticator.Login(ctx, "a@x.io", "wrong-hunter2")
	require.Error(t, err)
	_, err = svc.Authenticator.Login(ctx, "ghost@x.io", "hunter2-secret")
	require.Error(t, err)
	_, err = svc.Authenticator.Login(ctx, "a@x.io", "hunter2-secret")
	require.NoError(t, err)

	entries := logEntries(t, &buf)

	t.Run("registration logged", func(t *testing.T) {
		e := findEntry(entries, "user registered")
		require.NotNil(t, e)
		assert.Equal(t, "INFO", e["level"])
		assert.Equal(t, "alice", e["username"])
	})

	t.Run("duplicate logged with reason", func(t *testing.T) {
		e := findEntry(entries, "registration rejected")
		require.NotNil(t, e)
		assert.Equal(t, "duplicate_email", e["reason"])
	})

	t.Run("login rejections keep the internal cause", func(t *testing.T) {
		var reasons []any
		for _, e := range entries {
			if e["msg"] == "login rejected" {
				reasons = append(reasons, e["reason"])
			}
		}
		assert.ElementsMatch(t, []any{auth.ErrWrongPassword.Error(), auth.ErrNoSuchAccount.Error()}, reasons)
	})

	t.Run("success logged", func(t *testing.T) {
		assert.NotNil(t, findEntry(entries, "user logged in"))
	})

	t.Run("passwords never logged", func(t *testing.T) {
		assert.NotContains(t, buf.String(), "hunter2")
	})
}

func TestAuthenticator_Logging_StoreFault(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	store := mocks.NewMockCredentialStore(t)
	hasher := mocks.NewMockPasswordHasher(t)
	sm, err := auth.NewSessionManager(auth.NewMemorySessionStore())
	require.NoError(t, err)
	a, err := auth.NewAuthenticator(store, hasher, sm, auth.WithLogger(logger))
	require.NoError(t, err)

	store.On("FindByEmail", mock.Anything, "a@x.io").Return(nil, errors.New("pool exhausted"))

	_, err = a.Login(context.Background(), "a@x.io", "pw")
	require.Error(t, err)

	e := findEntry(logEntries(t, &buf), "login lookup failed")
	require.NotNil(t, e)
	assert.Equal(t, "ERROR", e["level"])
	assert.Contains(t, e["error"], "pool exhausted")
}
