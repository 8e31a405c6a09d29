// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Srithwak/Audio-Draft/internal/logging"
)

const serviceName = "audiodraft"

// NewRootCmd creates the root command for the Audio-Draft CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audiodraft",
		Short: "Audio-Draft - songs catalog with accounts and sessions",
		Long: `Audio-Draft serves a song catalog to registered users. Accounts and
sessions live in PostgreSQL; the catalog is only listed to logged-in users.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "config file path (default: $XDG_CONFIG_HOME/audiodraft/config.yaml)")
	flags.String("env-file", ".env", "dotenv file merged into the environment if present")
	flags.String("database-url", "", "PostgreSQL URL, overrides the individual database settings")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json or text)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewInitDBCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewShellCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// sourcesFor reads the config locations from cmd's flags.
func sourcesFor(cmd *cobra.Command) configSources {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")    //nolint:errcheck // defined on root
	envFile, _ := flags.GetString("env-file") //nolint:errcheck // defined on root
	return configSources{File: path, EnvFile: envFile, Flags: flags}
}

// bootstrap loads the configuration and builds the logger every command
// starts from. Logs go to the command's stderr.
func bootstrap(cmd *cobra.Command) (Config, *slog.Logger, error) {
	cfg, err := loadConfig(sourcesFor(cmd))
	if err != nil {
		return Config{}, nil, err
	}
	logger, err := logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
