// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package gatewaytest provides a self-contained test fixture -- an
// in-memory metadata store plus a real Postgres replica -- grounded on
// the teacher's internal/sinktest/all.Fixture (a single constructor
// returning a struct of database-backed services) and on
// testcontainers-go's modules/postgres helper for the container
// lifecycle.
package gatewaytest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iamawatermelo/landtable/internal/kvstore"
	"github.com/iamawatermelo/landtable/internal/metadatacache"
)

// Fixture bundles an in-memory metadata store, its cache, and a live
// Postgres replica for backend integration tests.
type Fixture struct {
	Store         *kvstore.Memory
	Cache         *metadatacache.Cache
	Pool          *pgxpool.Pool
	ConnectionURL string

	container *postgres.PostgresContainer
}

// NewFixture starts a Postgres container and an in-memory metadata
// cache, returning both and a cleanup function that tears them down in
// reverse order.
func NewFixture(ctx context.Context) (*Fixture, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("landtable_test"),
		postgres.WithUsername("landtable"),
		postgres.WithPassword("landtable"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not start postgres container")
	}

	connURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, errors.Wrap(err, "could not compute connection string")
	}

	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, nil, errors.Wrap(err, "could not open test connection pool")
	}

	store := kvstore.NewMemory()
	cache := metadatacache.New(store)
	if err := cache.Connect(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, nil, errors.Wrap(err, "could not start metadata cache")
	}

	f := &Fixture{
		Store:         store,
		Cache:         cache,
		Pool:          pool,
		ConnectionURL: connURL,
		container:     container,
	}

	cleanup := func() {
		cache.Shutdown()
		pool.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			_ = err
		}
	}

	return f, cleanup, nil
}
