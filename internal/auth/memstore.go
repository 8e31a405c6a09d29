// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/samber/oops"
)

// memoryShards is the number of independently locked partitions.
const memoryShards = 32

type memoryShard struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// MemorySessionStore is an in-process SessionStore.
// Keys are spread over fixed shards so that operations on different
// sessions rarely share a lock and no lock spans the whole table.
type MemorySessionStore struct {
	shards [memoryShards]*memoryShard
}

// NewMemorySessionStore creates an empty MemorySessionStore.
func NewMemorySessionStore() *MemorySessionStore {
	s := &MemorySessionStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{sessions: make(map[string]Session)}
	}
	return s
}

func (s *MemorySessionStore) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key)) //nolint:errcheck // hash.Hash never returns an error
	return s.shards[h.Sum32()%memoryShards]
}

// Put stores a copy of session under key.
func (s *MemorySessionStore) Put(_ context.Context, key string, session *Session) error {
	if session == nil {
		return oops.Code("SESSION_INVALID").Errorf("session cannot be nil")
	}
	sh := s.shard(key)
	sh.mu.Lock()
	sh.sessions[key] = *session
	sh.mu.Unlock()
	return nil
}

// Get returns a copy of the session stored under key.
func (s *MemorySessionStore) Get(_ context.Context, key string) (*Session, error) {
	sh := s.shard(key)
	sh.mu.RLock()
	session, ok := sh.sessions[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	return &session, nil
}

// Delete removes key. Missing keys are not an error.
func (s *MemorySessionStore) Delete(_ context.Context, key string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	delete(sh.sessions, key)
	sh.mu.Unlock()
	return nil
}

// DeleteExpired removes sessions expired at now, one shard at a time.
func (s *MemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, session := range sh.sessions {
			if session.IsExpiredAt(now) {
				delete(sh.sessions, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// Count returns the number of stored sessions.
func (s *MemorySessionStore) Count(_ context.Context) (int64, error) {
	var n int64
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += int64(len(sh.sessions))
		sh.mu.RUnlock()
	}
	return n, nil
}

// Compile-time interface check.
var _ SessionStore = (*MemorySessionStore)(nil)
