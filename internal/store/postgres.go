// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// MaintenanceDatabase is the database connected to when creating another one.
const MaintenanceDatabase = "postgres"

// DB is the query surface repositories depend on.
// *pgxpool.Pool satisfies it, as does pgxmock.PgxPoolIface.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// ConnParams locates a database. URL wins over the individual fields.
type ConnParams struct {
	URL      string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// ConnString renders the parameters as a postgres:// URL.
func (p ConnParams) ConnString() string {
	if p.URL != "" {
		return p.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Name,
	}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{p.SSLMode}}.Encode()
	}
	return u.String()
}

// DatabaseName returns the database the parameters point at.
func (p ConnParams) DatabaseName() (string, error) {
	if p.URL == "" {
		return p.Name, nil
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return "", oops.Code("DATABASE_URL_INVALID").Wrap(err)
	}
	return strings.TrimLeft(u.Path, "/"), nil
}

// ForDatabase returns a copy of p pointing at another database on the same server.
func (p ConnParams) ForDatabase(name string) (ConnParams, error) {
	if p.URL == "" {
		p.Name = name
		return p, nil
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return ConnParams{}, oops.Code("DATABASE_URL_INVALID").Wrap(err)
	}
	u.Path = "/" + name
	p.URL = u.String()
	return p, nil
}

// PoolOptions tunes NewPool.
type PoolOptions struct {
	// ConnectRetries is how many extra pings are attempted before giving up.
	ConnectRetries uint64
	// RetryBase is the first backoff delay; it doubles on each retry.
	RetryBase time.Duration
	Logger    *slog.Logger
}

// NewPool opens a pool and waits until the database answers a ping.
func NewPool(ctx context.Context, connString string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, oops.Code("DATABASE_CONFIG_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("host", cfg.ConnConfig.Host).
			Wrap(err)
	}

	if err := waitForDatabase(ctx, pool, opts); err != nil {
		pool.Close()
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("host", cfg.ConnConfig.Host).
			With("database", cfg.ConnConfig.Database).
			Wrap(err)
	}
	return pool, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func waitForDatabase(ctx context.Context, db pinger, opts PoolOptions) error {
	base := opts.RetryBase
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backoff := retry.WithMaxRetries(opts.ConnectRetries,
		retry.WithCappedDuration(5*time.Second, retry.NewExponential(base)))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := db.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// CreateDatabase creates the database named by params unless it already
// exists, connecting through the maintenance database. It reports whether the
// database was created.
func CreateDatabase(ctx context.Context, params ConnParams) (bool, error) {
	name, err := params.DatabaseName()
	if err != nil {
		return false, err
	}
	if name == "" {
		return false, oops.Code("DATABASE_NAME_REQUIRED").Errorf("database name is required")
	}

	admin, err := params.ForDatabase(MaintenanceDatabase)
	if err != nil {
		return false, err
	}
	conn, err := pgx.Connect(ctx, admin.ConnString())
	if err != nil {
		return false, oops.Code("DATABASE_CONNECT_FAILED").
			With("database", MaintenanceDatabase).
			Wrap(err)
	}
	defer func() { _ = conn.Close(ctx) }() //nolint:errcheck // best-effort close

	return createIfMissing(ctx, conn, name)
}

type execQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func createIfMissing(ctx context.Context, db execQuerier, name string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_database WHERE datname = $1)`, name,
	).Scan(&exists)
	if err != nil {
		return false, oops.Code("DATABASE_LOOKUP_FAILED").With("database", name).Wrap(err)
	}
	if exists {
		return false, nil
	}

	// CREATE DATABASE cannot take bind parameters.
	stmt := fmt.Sprintf("CREATE DATABASE %s", pgx.Identifier{name}.Sanitize())
	if _, err := db.Exec(ctx, stmt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.DuplicateDatabase {
			return false, nil
		}
		return false, oops.Code("DATABASE_CREATE_FAILED").With("database", name).Wrap(err)
	}
	return true, nil
}
