// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srithwak/Audio-Draft/internal/auth/authtest"
	"github.com/Srithwak/Audio-Draft/internal/catalog"
)

type stubSongs struct {
	songs []catalog.Song
	err   error
}

func (p *stubSongs) ListAll(context.Context) ([]catalog.Song, error) {
	return p.songs, p.err
}

func runShell(t *testing.T, provider *stubSongs, script ...string) (*authtest.Services, string) {
	t.Helper()
	services := authtest.NewServices()
	songs, err := catalog.NewService(provider, services.Gate, discardLogger())
	require.NoError(t, err)

	out := new(bytes.Buffer)
	sh := newShell(services.Authenticator, songs, strings.NewReader(strings.Join(script, "\n")+"\n"), out, discardLogger())
	require.NoError(t, sh.run(context.Background()))
	return services, out.String()
}

func TestShell_FullSession(t *testing.T) {
	provider := &stubSongs{songs: []catalog.Song{
		{ID: "1", Title: "Blue in Green", Artist: "Miles Davis", Album: "Kind of Blue", Genre: "Jazz"},
	}}

	services, out := runShell(t, provider,
		"3",
		"1", "alice", "alice@example.com", "s3cret",
		"1", "bob", "alice@example.com", "other",
		"2", "alice@example.com", "wrong",
		"2", "alice@example.com", "s3cret",
		"2",
		"3",
		"4",
		"4",
		"5",
	)

	assert.Contains(t, out, "=== Audio-Draft ===")
	assert.Contains(t, out, "Log in first.")
	assert.Contains(t, out, "Registered!")
	assert.Contains(t, out, "Failed: Email already registered.")
	assert.Contains(t, out, "Invalid credentials.")
	assert.Contains(t, out, "Welcome!")
	assert.Contains(t, out, "Logged in as: alice")
	assert.Contains(t, out, "Already logged in.")
	assert.Contains(t, out, "  Title                          Artist")
	assert.Contains(t, out, "Blue in Green")
	assert.Contains(t, out, "Logged out.")
	assert.Contains(t, out, "Not logged in.")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "Bye!"))

	active, err := services.Sessions.Active(context.Background())
	require.NoError(t, err)
	assert.Zero(t, active)
}

func TestShell_RegisterMissingFields(t *testing.T) {
	_, out := runShell(t, &stubSongs{}, "1", "alice", "", "pw", "5")
	assert.Contains(t, out, "Failed: All fields required.")
}

func TestShell_EmptyCatalog(t *testing.T) {
	_, out := runShell(t, &stubSongs{},
		"1", "alice", "alice@example.com", "pw",
		"2", "alice@example.com", "pw",
		"3",
		"5",
	)
	assert.Contains(t, out, "No songs found.")
}

func TestShell_CatalogFailureIsGeneric(t *testing.T) {
	_, out := runShell(t, &stubSongs{err: errors.New("relation \"songs\" does not exist")},
		"1", "alice", "alice@example.com", "pw",
		"2", "alice@example.com", "pw",
		"3",
		"5",
	)
	assert.Contains(t, out, "Error: service unavailable")
	assert.NotContains(t, out, "relation")
}

func TestShell_EOFLogsOut(t *testing.T) {
	services := authtest.NewServices()
	songs, err := catalog.NewService(&stubSongs{}, services.Gate, discardLogger())
	require.NoError(t, err)
	_, err = services.Authenticator.Register(context.Background(), "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	out := new(bytes.Buffer)
	// No trailing newline: the last line is still read before EOF.
	input := strings.NewReader("2\nalice@example.com\npw")
	sh := newShell(services.Authenticator, songs, input, out, discardLogger())
	require.NoError(t, sh.run(context.Background()))

	assert.Contains(t, out.String(), "Welcome!")
	assert.Contains(t, out.String(), "Bye!")
	active, err := services.Sessions.Active(context.Background())
	require.NoError(t, err)
	assert.Zero(t, active)
}

func TestShell_UnknownChoiceRedrawsMenu(t *testing.T) {
	_, out := runShell(t, &stubSongs{}, "9", "5")
	assert.Equal(t, 2, strings.Count(out, "=== Audio-Draft ==="))
}
