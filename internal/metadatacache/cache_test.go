// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package metadatacache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawatermelo/landtable/internal/identifier"
	"github.com/iamawatermelo/landtable/internal/kvstore"
	"github.com/iamawatermelo/landtable/internal/metadata"
	"github.com/iamawatermelo/landtable/internal/metadatacache"
)

func putWorkspace(t *testing.T, store *kvstore.Memory, ws metadata.Workspace) {
	t.Helper()
	raw, err := json.Marshal(ws)
	require.NoError(t, err)
	store.Put("/landtable/workspaces/"+ws.ID.String()+"/meta", raw)
}

func TestFetchWorkspaceByIDPopulatesBothCacheSlots(t *testing.T) {
	store := kvstore.NewMemory()
	ws := metadata.Workspace{
		ID:   identifier.WorkspaceIdentifier{Identifier: identifier.New(identifier.NamespaceWorkspace, uuid.New())},
		Name: "acme",
	}
	putWorkspace(t, store, ws)

	cache := metadatacache.New(store)
	got, err := cache.FetchWorkspace(context.Background(), ws.ID.String())
	require.NoError(t, err)
	assert.Equal(t, ws.Name, got.Name)

	// second fetch, now by name, should be served from the cache slot
	// populated by the first fetch without touching the store again.
	store.Put("/landtable/workspaces/"+ws.ID.String()+"/meta", []byte("garbage-would-fail-to-decode"))
	got2, err := cache.FetchWorkspace(context.Background(), ws.Name)
	require.NoError(t, err)
	assert.Equal(t, ws.Name, got2.Name)
}

func TestFetchWorkspaceResolvesAlias(t *testing.T) {
	store := kvstore.NewMemory()
	ws := metadata.Workspace{
		ID:   identifier.WorkspaceIdentifier{Identifier: identifier.New(identifier.NamespaceWorkspace, uuid.New())},
		Name: "acme",
	}
	putWorkspace(t, store, ws)
	store.Put("/landtable/workspaceAliases/acme", []byte(ws.ID.String()))

	cache := metadatacache.New(store)
	got, err := cache.FetchWorkspace(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, ws.ID.String(), got.ID.String())
}

func TestFetchWorkspaceUnknownHandleIsNotFound(t *testing.T) {
	cache := metadatacache.New(kvstore.NewMemory())
	_, err := cache.FetchWorkspace(context.Background(), "nope")
	assert.Error(t, err)
}

func TestFetchDatabaseByID(t *testing.T) {
	store := kvstore.NewMemory()
	db := metadata.Database{ID: identifier.DatabaseIdentifier{Identifier: identifier.New(identifier.NamespaceDatabase, uuid.New())}}
	raw, err := json.Marshal(db)
	require.NoError(t, err)
	store.Put("/landtable/databases/"+db.ID.String(), raw)

	cache := metadatacache.New(store)
	got, err := cache.FetchDatabase(context.Background(), db.ID)
	require.NoError(t, err)
	assert.Equal(t, db.ID.String(), got.ID.String())
}

func TestWatcherAppliesWorkspaceEvents(t *testing.T) {
	store := kvstore.NewMemory()
	cache := metadatacache.New(store)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, cache.Connect(ctx))
	defer func() {
		cancel()
		cache.Shutdown()
	}()

	ws := metadata.Workspace{
		ID:   identifier.WorkspaceIdentifier{Identifier: identifier.New(identifier.NamespaceWorkspace, uuid.New())},
		Name: "beta",
	}
	putWorkspace(t, store, ws)

	require.Eventually(t, func() bool {
		got, err := cache.FetchWorkspace(context.Background(), ws.Name)
		return err == nil && got.Name == ws.Name
	}, 2*time.Second, 10*time.Millisecond)
}
