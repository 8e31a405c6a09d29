// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(newStoreMigrator)
}

func newMigrateCmd(factory MigratorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, revert and inspect the schema migrations embedded in the binary.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, factory, func(m Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				return printStatus(cmd, m)
			})
		},
	})

	var all bool
	down := &cobra.Command{
		Use:   "down [N]",
		Short: "Revert the last N migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return oops.Code("INVALID_STEPS").With("steps", args[0]).Errorf("N must be a positive integer")
				}
				steps = n
			}
			return withMigrator(cmd, factory, func(m Migrator) error {
				if all {
					cmd.Println("Reverting all migrations...")
					if err := m.Down(); err != nil {
						return err
					}
				} else {
					cmd.Printf("Reverting %d migration(s)...\n", steps)
					if err := m.Steps(-steps); err != nil {
						return err
					}
				}
				return printStatus(cmd, m)
			})
		},
	}
	down.Flags().BoolVar(&all, "all", false, "revert every migration, dropping all tables")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied version and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, factory, func(m Migrator) error {
				return printStatus(cmd, m)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it",
		Long: `Record VERSION as the applied migration and clear the dirty flag.
Use it to recover after a migration failed halfway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, factory, func(m Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				return printStatus(cmd, m)
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, factory MigratorFactory, fn func(Migrator) error) error {
	cfg, _, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	m, err := factory(cfg.ConnParams().ConnString())
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() { _ = m.Close() }() //nolint:errcheck // best-effort close

	if err := fn(m); err != nil {
		return oops.Code("MIGRATION_FAILED").With("command", cmd.Name()).Wrap(err)
	}
	return nil
}

func printStatus(cmd *cobra.Command, m Migrator) error {
	status, err := m.Status()
	if err != nil {
		return err
	}
	name := status.Name
	if name == "" {
		name = "none"
	}
	cmd.Printf("Version: %d (%s)\n", status.Version, name)
	if status.Dirty {
		cmd.Println("Dirty:   yes, run 'audiodraft migrate force VERSION' after fixing the schema")
	}
	if len(status.Pending) == 0 {
		cmd.Println("Pending: none")
		return nil
	}
	pending := make([]string, len(status.Pending))
	for i, v := range status.Pending {
		pending[i] = strconv.FormatUint(uint64(v), 10)
	}
	cmd.Printf("Pending: %s\n", strings.Join(pending, ", "))
	return nil
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("version", s).Wrap(err)
	}
	return version, nil
}
