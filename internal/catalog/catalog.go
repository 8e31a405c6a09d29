// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package catalog serves the read-only song catalog behind the session gate.
package catalog

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/Srithwak/Audio-Draft/internal/auth"
)

// Song is one catalog entry.
type Song struct {
	ID         string `json:"song_id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	Genre      string `json:"genre"`
	DurationMS int    `json:"duration_ms"`
}

// Provider lists the catalog, ordered by title then id.
type Provider interface {
	ListAll(ctx context.Context) ([]Song, error)
}

// Service exposes the catalog to authenticated callers only.
type Service struct {
	provider Provider
	gate     *auth.Gate
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(provider Provider, gate *auth.Gate, logger *slog.Logger) (*Service, error) {
	if provider == nil {
		return nil, oops.Code("CATALOG_INVALID_SERVICE").Errorf("catalog provider is required")
	}
	if gate == nil {
		return nil, oops.Code("CATALOG_INVALID_SERVICE").Errorf("access gate is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, gate: gate, logger: logger}, nil
}

// ListCatalog returns every song when handle belongs to an active session.
// The provider is not consulted for anonymous callers.
func (s *Service) ListCatalog(ctx context.Context, handle string) ([]Song, error) {
	return auth.Guard(ctx, s.gate, handle, func(ctx context.Context, p auth.Principal) ([]Song, error) {
		songs, err := s.provider.ListAll(ctx)
		if err != nil {
			return nil, auth.StorageError("list catalog", err)
		}
		if songs == nil {
			songs = []Song{}
		}
		s.logger.DebugContext(ctx, "catalog listed", "user_id", p.UserID, "count", len(songs))
		return songs, nil
	})
}
