// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package backend defines the transaction-execution contract every
// physical replica kind implements, and the registry that maps a
// database's config type to the backend that serves it (spec.md §4.J),
// grounded on original_source/landtable/backends/__init__.go and on the
// teacher's logical.Dialect / types.Appliers registry shape.
package backend

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/iamawatermelo/landtable/internal/metadata"
	"github.com/iamawatermelo/landtable/internal/txn"
)

// TransactionType reports how faithfully a backend can honor the
// gateway's transactional contract.
type TransactionType string

const (
	// Strong backends execute a Transaction atomically against a real
	// transactional store (e.g. the SQL backend against Postgres).
	Strong TransactionType = "STRONG"
	// Emulated backends approximate atomicity -- e.g. an Airtable
	// replica, which has no native multi-row transaction primitive.
	Emulated TransactionType = "EMULATED"
)

// Information describes a backend's capabilities, independent of any
// one configured instance of it.
type Information struct {
	TransactionType TransactionType
	ConfigTypes     []metadata.DatabaseType
}

// Backend executes a Transaction against one physical database
// replica, given the table's metadata (for logical-to-physical column
// translation) and the database config selecting the replica.
type Backend interface {
	Information() Information
	Execute(ctx context.Context, db metadata.Database, table metadata.Table, tx txn.Transaction, consistency txn.Consistency) ([]txn.RowResult, error)
}

// Registry maps a metadata.DatabaseType to the single Backend
// responsible for it, built once at startup (spec.md §4.J).
type Registry struct {
	mu          sync.RWMutex
	initialized bool
	byConfig    map[metadata.DatabaseType]Backend
}

// NewRegistry returns an empty, uninitialized Registry.
func NewRegistry() *Registry {
	return &Registry{byConfig: make(map[metadata.DatabaseType]Backend)}
}

// Register adds a backend to the registry, sequentially, before
// Initialize is called. It is an error for two backends to claim the
// same config type.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("cannot register a backend after the registry has been initialized")
	}

	for _, ct := range b.Information().ConfigTypes {
		if _, exists := r.byConfig[ct]; exists {
			return errors.Errorf("config type %s is already claimed by another backend", ct)
		}
		r.byConfig[ct] = b
	}
	return nil
}

// Initialize marks the registry as ready to serve lookups. Per
// spec.md §4.J, initializing backends sequentially is sufficient; this
// registry requires only that registration happened before this call,
// since each Backend implementation is responsible for its own lazy
// connection setup.
func (r *Registry) Initialize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = true
}

// FetchBackendForConfigType returns the backend responsible for the
// given database config type. It is an error to call this before
// Initialize, and an error if no backend claims the type.
func (r *Registry) FetchBackendForConfigType(t metadata.DatabaseType) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.initialized {
		return nil, errors.New("backend registry has not finished initializing")
	}
	b, ok := r.byConfig[t]
	if !ok {
		return nil, errors.Errorf("no backend registered for config type %s", t)
	}
	return b, nil
}
