// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Srithwak/Audio-Draft/internal/store"
)

const defaultInitTimeout = 30 * time.Second

// InitDBDeps contains injectable dependencies for the initdb command.
type InitDBDeps struct {
	// CreateDatabase creates the configured database if it is missing.
	// Default: store.CreateDatabase
	CreateDatabase func(ctx context.Context, params store.ConnParams) (bool, error)

	// NewMigrator opens a migrator for the created database.
	// Default: store.NewMigrator
	NewMigrator MigratorFactory
}

// NewInitDBCmd creates the initdb subcommand.
func NewInitDBCmd() *cobra.Command {
	return newInitDBCmd(nil)
}

func newInitDBCmd(deps *InitDBDeps) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create the database and apply the schema",
		Long: `Create the configured database through the maintenance database when it
does not exist yet, then apply every pending migration. Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInitDB(cmd, timeout, deps)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultInitTimeout, "timeout for creating the database")

	return cmd
}

func runInitDB(cmd *cobra.Command, timeout time.Duration, deps *InitDBDeps) error {
	if deps == nil {
		deps = &InitDBDeps{}
	} else {
		copied := *deps
		deps = &copied
	}
	if deps.CreateDatabase == nil {
		deps.CreateDatabase = store.CreateDatabase
	}
	if deps.NewMigrator == nil {
		deps.NewMigrator = newStoreMigrator
	}

	cfg, logger, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	params := cfg.ConnParams()
	name, err := params.DatabaseName()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	created, err := deps.CreateDatabase(ctx, params)
	if err != nil {
		return oops.Code("INIT_DB_FAILED").With("database", name).Wrap(err)
	}
	if created {
		cmd.Printf("Database %q created.\n", name)
	} else {
		cmd.Printf("Database %q already exists.\n", name)
	}
	logger.Info("database ready", "database", name, "created", created)

	status, err := migrateUp(deps.NewMigrator, params.ConnString())
	if err != nil {
		return oops.Code("INIT_DB_FAILED").With("database", name).With("operation", "migrate").Wrap(err)
	}
	cmd.Printf("Schema at version %d (%s).\n", status.Version, status.Name)
	return nil
}
