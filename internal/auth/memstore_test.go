// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/pkg/errutil"
)

func TestMemorySessionStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemorySessionStore()

	session := &auth.Session{UserID: "u1", Username: "alice", CreatedAt: time.Now()}
	require.NoError(t, store.Put(ctx, "k1", session))

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	t.Run("get returns a copy", func(t *testing.T) {
		got.Username = "mallory"
		again, err := store.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "alice", again.Username)
	})

	t.Run("missing key is not found", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "SESSION_NOT_FOUND")
	})

	t.Run("nil session rejected", func(t *testing.T) {
		err := store.Put(ctx, "k2", nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID")
	})

	require.NoError(t, store.Delete(ctx, "k1"))
	require.NoError(t, store.Delete(ctx, "k1"))
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestMemorySessionStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemorySessionStore()
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	for i := range 10 {
		s := &auth.Session{UserID: fmt.Sprintf("u%d", i), Username: "user", CreatedAt: now}
		if i%2 == 0 {
			s.ExpiresAt = now.Add(-time.Minute)
		}
		require.NoError(t, store.Put(ctx, fmt.Sprintf("key-%d", i), s))
	}

	removed, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(5), removed)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestMemorySessionStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := auth.NewMemorySessionStore()

	const workers = 16
	const perWorker = 50

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				key := fmt.Sprintf("w%d-s%d", w, i)
				assert.NoError(t, store.Put(ctx, key, &auth.Session{UserID: key, Username: "user"}))
				got, err := store.Get(ctx, key)
				if assert.NoError(t, err) {
					assert.Equal(t, key, got.UserID)
				}
				if i%2 == 1 {
					assert.NoError(t, store.Delete(ctx, key))
				}
			}
		}()
	}
	wg.Wait()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker/2), n)
}
