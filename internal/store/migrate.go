// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package store

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Register pgx/v5 database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateIface is the subset of *migrate.Migrate the Migrator drives.
type migrateIface interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() (source error, database error)
}

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m migrateIface
}

// MigrationStatus describes the schema state of a database.
type MigrationStatus struct {
	Version uint
	Name    string
	Dirty   bool
	Pending []uint
}

// NewMigrator creates a Migrator for databaseURL.
// postgres:// and postgresql:// URLs are rewritten to the pgx5:// scheme
// expected by the golang-migrate pgx/v5 driver.
func NewMigrator(databaseURL string) (*Migrator, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, oops.Code("MIGRATION_SOURCE_FAILED").With("operation", "open embedded migrations").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close() //nolint:errcheck // init error takes precedence
		return nil, oops.Code("MIGRATION_INIT_FAILED").With("operation", "initialize migrator").Wrap(err)
	}
	return &Migrator{m: m}, nil
}

func migrateURL(databaseURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(databaseURL, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	if err := m.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Down reverts every migration. All tables and their rows are dropped.
func (m *Migrator) Down() error {
	if err := m.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_DOWN_FAILED").Wrap(err)
	}
	return nil
}

// Steps applies n migrations up, or -n down when n is negative.
func (m *Migrator) Steps(n int) error {
	if err := m.m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return oops.Code("MIGRATION_STEPS_FAILED").With("steps", n).Wrap(err)
	}
	return nil
}

// Version returns the applied version, 0 for an empty database.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything.
// It is the recovery path for a dirty database.
func (m *Migrator) Force(version int) error {
	if version < 0 {
		return oops.Code("INVALID_VERSION").With("version", version).Errorf("version must be non-negative, got %d", version)
	}
	if err := m.m.Force(version); err != nil {
		return oops.Code("MIGRATION_FORCE_FAILED").With("version", version).Wrap(err)
	}
	return nil
}

// Status reports the current version and the versions still to apply.
func (m *Migrator) Status() (MigrationStatus, error) {
	version, dirty, err := m.Version()
	if err != nil {
		return MigrationStatus{}, oops.With("operation", "migration status").Wrap(err)
	}
	all, err := MigrationVersions()
	if err != nil {
		return MigrationStatus{}, oops.With("operation", "migration status").Wrap(err)
	}
	name, err := MigrationName(version)
	if err != nil {
		return MigrationStatus{}, oops.With("operation", "migration status").Wrap(err)
	}

	status := MigrationStatus{Version: version, Name: name, Dirty: dirty}
	for _, v := range all {
		if v > version {
			status.Pending = append(status.Pending, v)
		}
	}
	return status, nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	switch {
	case srcErr != nil && dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").
			With("component", "both").
			Errorf("source: %v; database: %v", srcErr, dbErr)
	case srcErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "source").Wrap(srcErr)
	case dbErr != nil:
		return oops.Code("MIGRATION_CLOSE_FAILED").With("component", "database").Wrap(dbErr)
	}
	return nil
}

// MigrationVersions lists the embedded migration versions in ascending order.
func MigrationVersions() ([]uint, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil {
		return nil, oops.Code("MIGRATION_LIST_FAILED").Wrap(err)
	}

	versions := make([]uint, 0, len(names))
	for _, name := range names {
		var v uint
		if _, err := fmt.Sscanf(strings.TrimPrefix(name, "migrations/"), "%06d_", &v); err != nil {
			return nil, oops.Code("MIGRATION_LIST_FAILED").With("file", name).Wrap(err)
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}

// MigrationName returns the NNNNNN_name of version, or "" when there is none.
func MigrationName(version uint) (string, error) {
	names, err := fs.Glob(migrationsFS, fmt.Sprintf("migrations/%06d_*.up.sql", version))
	if err != nil {
		return "", oops.Code("MIGRATION_READ_FAILED").Wrap(err)
	}
	if len(names) == 0 {
		return "", nil
	}
	return strings.TrimSuffix(strings.TrimPrefix(names[0], "migrations/"), ".up.sql"), nil
}
