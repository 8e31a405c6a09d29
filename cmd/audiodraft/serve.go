// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/Srithwak/Audio-Draft/internal/auth"
	"github.com/Srithwak/Audio-Draft/internal/httpapi"
	"github.com/Srithwak/Audio-Draft/internal/observability"
)

const shutdownTimeout = 5 * time.Second

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// OpenDatabase connects to PostgreSQL.
	// Default: openDatabase
	OpenDatabase DatabaseOpener

	// NewMigrator opens a migrator when --migrate is set.
	// Default: store.NewMigrator
	NewMigrator MigratorFactory

	// Ready is called once both listeners are bound, with their addresses.
	// The metrics address is empty when metrics are disabled.
	Ready func(apiAddr, metricsAddr string)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmd(nil)
}

func newServeCmd(deps *ServeDeps) *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the JSON API (register, login, logout, me, songs) together with the
metrics and health endpoints. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd, migrateFirst, deps)
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")
	cmd.Flags().String("http-addr", "", "API listen address")
	cmd.Flags().String("metrics-addr", "", "metrics/health listen address (empty string disables)")
	cmd.Flags().String("session-store", "", "session store (memory or postgres)")
	cmd.Flags().String("session-ttl", "", "session lifetime, 0 for no expiry (e.g. 24h)")
	cmd.Flags().String("static-dir", "", "directory served for paths outside /api")

	return cmd
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(cmd *cobra.Command, migrateFirst bool, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	} else {
		copied := *deps
		deps = &copied
	}
	if deps.OpenDatabase == nil {
		deps.OpenDatabase = openDatabase
	}
	if deps.NewMigrator == nil {
		deps.NewMigrator = newStoreMigrator
	}

	cfg, logger, err := bootstrap(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("starting audiodraft",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"session_store", cfg.Session.Store,
		"session_ttl", cfg.Session.TTL.String(),
	)

	if migrateFirst {
		status, err := migrateUp(deps.NewMigrator, cfg.ConnParams().ConnString())
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "migrate before serve").Wrap(err)
		}
		logger.Info("migrations applied", "version", status.Version, "name", status.Name)
	}

	db, err := deps.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()
	logger.Info("connected to database")

	// The metrics server exists before the services so its counters can
	// record from the first request; the gauge reads sessions lazily.
	var (
		obsServer *observability.Server
		recorder  auth.Recorder
		sessions  *auth.SessionManager
	)
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, db.Ping,
			observability.WithSessionCounter(func(ctx context.Context) (int64, error) {
				if sessions == nil {
					return 0, nil
				}
				return sessions.Active(ctx)
			}))
		recorder = obsServer.Metrics()
	}

	svc, err := buildServices(cfg, db, logger, recorder)
	if err != nil {
		return err
	}
	sessions = svc.sessions

	apiOpts := []httpapi.Option{httpapi.WithLogger(logger)}
	if obsServer != nil {
		apiOpts = append(apiOpts, httpapi.WithRequestRecorder(obsServer.Metrics()))
	}
	gin.SetMode(gin.ReleaseMode)
	api, err := httpapi.NewServer(httpapi.Config{
		Addr:         cfg.HTTP.Addr,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		CookieName:   cfg.Session.CookieName,
		SecureCookie: cfg.Session.SecureCookie,
		SessionTTL:   cfg.Session.TTL,
		StaticDir:    cfg.HTTP.StaticDir,
	}, svc.authenticator, svc.catalog, apiOpts...)
	if err != nil {
		return err
	}

	apiErrCh, err := api.Start()
	if err != nil {
		return oops.Code("API_START_FAILED").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api", logger)

	metricsAddr := ""
	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopServer(api, "api", logger)
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		metricsAddr = obsServer.Addr()
	}

	var wg sync.WaitGroup
	if cfg.Session.TTL > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.sessions.RunSweeper(ctx, cfg.Session.SweepInterval)
		}()
	}

	cmd.Println("Audio-Draft API listening on " + api.Addr())
	if deps.Ready != nil {
		deps.Ready(api.Addr(), metricsAddr)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	stopServer(api, "api", logger)
	if obsServer != nil {
		stopServer(obsServer, "observability", logger)
	}
	wg.Wait()

	logger.Info("shutdown complete")
	return nil
}

type stopper interface {
	Stop(ctx context.Context) error
}

func stopServer(s stopper, name string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels the context when a server fails.
// It exits when an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
