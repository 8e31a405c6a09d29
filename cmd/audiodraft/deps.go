// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	authpg "github.com/Srithwak/Audio-Draft/internal/auth/postgres"
	"github.com/Srithwak/Audio-Draft/internal/catalog"
	"github.com/Srithwak/Audio-Draft/internal/store"
)

// connectRetryBase is the first delay between database connection attempts.
const connectRetryBase = 500 * time.Millisecond

// Database is the pool surface the commands use.
// *pgxpool.Pool satisfies it, as does pgxmock.PgxPoolIface.
type Database interface {
	store.DB
	Ping(ctx context.Context) error
	Close()
}

// DatabaseOpener connects to the configured database.
type DatabaseOpener func(ctx context.Context, cfg Config, logger *slog.Logger) (Database, error)

// openDatabase is the default DatabaseOpener.
func openDatabase(ctx context.Context, cfg Config, logger *slog.Logger) (Database, error) {
	pool, err := store.NewPool(ctx, cfg.ConnParams().ConnString(), store.PoolOptions{
		ConnectRetries: cfg.Database.ConnectRetries,
		RetryBase:      connectRetryBase,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// services is the wired application core shared by serve and shell.
type services struct {
	sessions      *auth.SessionManager
	authenticator *auth.Authenticator
	catalog       *catalog.Service
}

// buildServices wires the auth core and the catalog over db.
// recorder may be nil.
func buildServices(cfg Config, db store.DB, logger *slog.Logger, recorder auth.Recorder) (*services, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Hash.Algorithm, cfg.Hash.BcryptCost)
	if err != nil {
		return nil, oops.With("operation", "build password hasher").Wrap(err)
	}

	var sessionStore auth.SessionStore
	switch cfg.Session.Store {
	case sessionStoreMemory:
		sessionStore = auth.NewMemorySessionStore()
	case sessionStorePostgres:
		sessionStore = authpg.NewSessionStore(db, authpg.WithOpTimeout(cfg.Database.OpTimeout))
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("key", "session.store").
			Errorf("unknown session store %q", cfg.Session.Store)
	}

	sessions, err := auth.NewSessionManager(sessionStore,
		auth.WithSessionTTL(cfg.Session.TTL),
		auth.WithSessionLogger(logger),
	)
	if err != nil {
		return nil, oops.With("operation", "build session manager").Wrap(err)
	}

	opts := []auth.AuthenticatorOption{auth.WithLogger(logger)}
	if recorder != nil {
		opts = append(opts, auth.WithRecorder(recorder))
	}
	credentials := authpg.NewCredentialStore(db, authpg.WithOpTimeout(cfg.Database.OpTimeout))
	authenticator, err := auth.NewAuthenticator(credentials, hasher, sessions, opts...)
	if err != nil {
		return nil, oops.With("operation", "build authenticator").Wrap(err)
	}

	gate, err := auth.NewGate(sessions)
	if err != nil {
		return nil, oops.With("operation", "build gate").Wrap(err)
	}
	songs, err := catalog.NewService(catalog.NewPostgresProvider(db, cfg.Database.OpTimeout), gate, logger)
	if err != nil {
		return nil, oops.With("operation", "build catalog").Wrap(err)
	}

	return &services{
		sessions:      sessions,
		authenticator: authenticator,
		catalog:       songs,
	}, nil
}

// MigratorFactory opens a migrator for a database URL.
type MigratorFactory func(databaseURL string) (Migrator, error)

// Migrator is the subset of store.Migrator the commands drive.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (store.MigrationStatus, error)
	Close() error
}

func newStoreMigrator(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// migrateUp applies all pending migrations and reports the resulting status.
func migrateUp(factory MigratorFactory, databaseURL string) (store.MigrationStatus, error) {
	m, err := factory(databaseURL)
	if err != nil {
		return store.MigrationStatus{}, err
	}
	defer func() { _ = m.Close() }() //nolint:errcheck // best-effort close

	if err := m.Up(); err != nil {
		return store.MigrationStatus{}, err
	}
	return m.Status()
}
