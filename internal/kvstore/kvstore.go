// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package kvstore defines the narrow external key-value contract the
// metadata cache watches (spec.md §4.I, §6): Get and WatchPrefix. Two
// implementations are provided: an etcd-backed one for production
// (internal/kvstore/etcd) and an in-memory one for tests.
package kvstore

import "context"

// Event is a single change observed on a watched prefix.
type Event struct {
	Key   string
	Value []byte
}

// Store is the contract the metadata cache (internal/metadatacache)
// requires of its backing key-value store.
type Store interface {
	// Get fetches the value at key, or (nil, false) if it doesn't
	// exist.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// WatchPrefix returns a channel of events for every key under
	// prefix. The channel is closed when ctx is canceled.
	WatchPrefix(ctx context.Context, prefix string) (<-chan Event, error)

	// Close releases any resources held by the store.
	Close() error
}
