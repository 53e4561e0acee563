// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

//go:build wireinject
// +build wireinject

// Package wire assembles the gateway's process-wide dependency graph --
// the KV client, the metadata cache, and the backend registry --
// grounded on internal/source/logical/provider.go's ProvideXxx/wire.Build
// shape.
package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/iamawatermelo/landtable/internal/backend"
	sqlbackend "github.com/iamawatermelo/landtable/internal/backend/sql"
	"github.com/iamawatermelo/landtable/internal/kvstore"
	"github.com/iamawatermelo/landtable/internal/kvstore/etcd"
	"github.com/iamawatermelo/landtable/internal/metadatacache"
)

// Set is used by Wire.
var Set = wire.NewSet(
	ProvideKVStore,
	ProvideMetadataCache,
	ProvideBackendRegistry,
)

// ProvideKVStore dials the etcd cluster backing the metadata watcher.
func ProvideKVStore(endpoints []string) (kvstore.Store, func(), error) {
	store, err := etcd.New(endpoints)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// ProvideMetadataCache constructs and connects the metadata cache.
func ProvideMetadataCache(ctx context.Context, store kvstore.Store) (*metadatacache.Cache, func(), error) {
	cache := metadatacache.New(store)
	if err := cache.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return cache, cache.Shutdown, nil
}

// ProvideBackendRegistry builds the registry of physical backends,
// per spec.md §4.J.
func ProvideBackendRegistry() (*backend.Registry, error) {
	registry := backend.NewRegistry()
	if err := registry.Register(sqlbackend.New()); err != nil {
		return nil, err
	}
	registry.Initialize()
	return registry, nil
}

// Gateway bundles the process-wide singletons a request handler needs.
type Gateway struct {
	Store    kvstore.Store
	Cache    *metadatacache.Cache
	Registry *backend.Registry
}

// NewGateway wires up a Gateway from its dependencies.
func NewGateway(ctx context.Context, endpoints []string) (*Gateway, func(), error) {
	panic(wire.Build(
		Set,
		wire.Struct(new(Gateway), "*"),
	))
}
