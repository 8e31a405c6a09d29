// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"context"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Srithwak/Audio-Draft/internal/catalog"
)

const defaultSeedTimeout = 30 * time.Second

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return newSeedCmd(openDatabase)
}

func newSeedCmd(open DatabaseOpener) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo song catalog",
		Long: `Insert the demo songs into the catalog. Songs already present, matched on
title and artist, are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := open(ctx, cfg, logger)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
			}
			defer db.Close()

			added, err := catalog.Seed(ctx, db, catalog.DemoSongs)
			if err != nil {
				return err
			}
			skipped := int64(len(catalog.DemoSongs)) - added
			logger.Info("catalog seeded", "added", added, "skipped", skipped)
			cmd.Printf("Seeded %d songs (%d already present).\n", added, skipped)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultSeedTimeout, "timeout for seeding")

	return cmd
}
