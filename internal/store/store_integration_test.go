// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Srithwak/Audio-Draft/internal/store"
)

func startPostgres(ctx context.Context) (*postgres.PostgresContainer, string) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("audiodraft_test"),
		postgres.WithUsername("audiodraft"),
		postgres.WithPassword("audiodraft"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())
	return container, connStr
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, name string) bool {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, name,
	).Scan(&exists)
	Expect(err).NotTo(HaveOccurred())
	return exists
}

var _ = Describe("Store", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		pool      *pgxpool.Pool
	)

	BeforeAll(func() {
		ctx = context.Background()
		container, connStr = startPostgres(ctx)

		var err error
		pool, err = store.NewPool(ctx, connStr, store.PoolOptions{ConnectRetries: 5})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	Describe("Migrator", func() {
		It("applies, rolls back and reapplies the schema", func() {
			migrator, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = migrator.Close() }()

			status, err := migrator.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Version).To(BeZero())
			Expect(status.Pending).To(Equal([]uint{1, 2, 3}))

			Expect(migrator.Up()).To(Succeed())
			Expect(migrator.Up()).To(Succeed(), "second Up is a no-op")
			for _, table := range []string{"users", "songs", "sessions"} {
				Expect(tableExists(ctx, pool, table)).To(BeTrue(), table)
			}

			Expect(migrator.Steps(-1)).To(Succeed())
			Expect(tableExists(ctx, pool, "sessions")).To(BeFalse())

			Expect(migrator.Down()).To(Succeed())
			Expect(tableExists(ctx, pool, "users")).To(BeFalse())

			Expect(migrator.Up()).To(Succeed())
			status, err = migrator.Status()
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Version).To(Equal(uint(3)))
			Expect(status.Name).To(Equal("000003_sessions"))
			Expect(status.Dirty).To(BeFalse())
			Expect(status.Pending).To(BeEmpty())
		})
	})

	Describe("CreateDatabase", func() {
		It("creates a missing database once", func() {
			params, err := store.ConnParams{URL: connStr}.ForDatabase("audiodraft_created")
			Expect(err).NotTo(HaveOccurred())

			created, err := store.CreateDatabase(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())

			created, err = store.CreateDatabase(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())

			other, err := store.NewPool(ctx, params.ConnString(), store.PoolOptions{})
			Expect(err).NotTo(HaveOccurred())
			other.Close()
		})
	})
})
