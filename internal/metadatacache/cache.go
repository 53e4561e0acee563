// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package metadatacache implements the TTL cache + background watcher
// fronting the external key-value store described in spec.md §4.I,
// grounded on original_source/landtable/state/__init__.go and on the
// teacher's types.Watcher/types.Watchers pattern (internal/types.go):
// a long-lived object that serves cached reads and is kept fresh by a
// single background goroutine subscribed to a key prefix.
package metadatacache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamawatermelo/landtable/internal/apierror"
	"github.com/iamawatermelo/landtable/internal/identifier"
	"github.com/iamawatermelo/landtable/internal/kvstore"
	"github.com/iamawatermelo/landtable/internal/metadata"
	"github.com/iamawatermelo/landtable/internal/metrics"
	"github.com/iamawatermelo/landtable/internal/tracing"
)

// TTL is the fixed cache lifetime specified by spec.md §4.I.
const TTL = 10 * time.Second

// entry[T] is a single cached value, stamped with the wall-clock time
// it was inserted.
type entry[T any] struct {
	createdAt time.Time
	value     T
}

func (e entry[T]) fresh(now time.Time) bool {
	return now.Sub(e.createdAt) < TTL
}

// Cache is the process-wide metadata cache + watcher singleton
// described in spec.md §4.I, threaded explicitly through request
// handlers rather than held as a hidden global (spec.md §9).
type Cache struct {
	store kvstore.Store

	mu         sync.RWMutex
	workspaces map[string]entry[metadata.Workspace]
	tables     map[string]entry[metadata.Table]
	databases  map[string]entry[metadata.Database]

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Cache over the given store. Connect must be called
// before the watcher starts observing updates.
func New(store kvstore.Store) *Cache {
	return &Cache{
		store:      store,
		workspaces: make(map[string]entry[metadata.Workspace]),
		tables:     make(map[string]entry[metadata.Table]),
		databases:  make(map[string]entry[metadata.Database]),
	}
}

// Connect starts the background watcher task. It must be paired with a
// call to Shutdown.
func (c *Cache) Connect(ctx context.Context) error {
	span := tracing.FromContext(ctx).Span("db-connect", "connect metadata watcher")
	defer span()

	watchCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	events, err := c.store.WatchPrefix(watchCtx, "/landtable")
	if err != nil {
		cancel()
		return errors.Wrap(err, "could not start metadata watcher")
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.watch(events)
	}()

	return nil
}

// Shutdown cancels the watcher task and waits for it to terminate. Per
// spec.md §5, this must complete before the underlying KV client is
// closed.
func (c *Cache) Shutdown() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// watch consumes watcher events until the channel is closed, refreshing
// the corresponding cache slot for each one. Unknown paths are logged
// and ignored, per spec.md §4.I.
func (c *Cache) watch(events <-chan kvstore.Event) {
	for ev := range events {
		c.applyEvent(ev)
	}
}

func (c *Cache) applyEvent(ev kvstore.Event) {
	segments := strings.Split(strings.TrimPrefix(ev.Key, "/landtable/"), "/")
	now := time.Now()

	switch {
	case len(segments) == 3 && segments[0] == "workspaces" && segments[2] == "meta":
		var ws metadata.Workspace
		if err := json.Unmarshal(ev.Value, &ws); err != nil {
			log.WithError(err).Warn("could not decode workspace watcher event")
			return
		}
		c.mu.Lock()
		c.workspaces[ws.ID.String()] = entry[metadata.Workspace]{createdAt: now, value: ws}
		c.workspaces[ws.Name] = entry[metadata.Workspace]{createdAt: now, value: ws}
		c.mu.Unlock()
		metrics.WatcherEvents.WithLabelValues("workspace").Inc()

	case len(segments) == 4 && segments[0] == "workspaces" && segments[2] == "tables":
		var tbl metadata.Table
		if err := json.Unmarshal(ev.Value, &tbl); err != nil {
			log.WithError(err).Warn("could not decode table watcher event")
			return
		}
		c.mu.Lock()
		c.tables[tbl.ID.String()] = entry[metadata.Table]{createdAt: now, value: tbl}
		c.tables[tbl.Name] = entry[metadata.Table]{createdAt: now, value: tbl}
		c.mu.Unlock()
		metrics.WatcherEvents.WithLabelValues("table").Inc()

	case len(segments) == 2 && segments[0] == "databases":
		var db metadata.Database
		if err := json.Unmarshal(ev.Value, &db); err != nil {
			log.WithError(err).Warn("could not decode database watcher event")
			return
		}
		c.mu.Lock()
		c.databases[db.ID.String()] = entry[metadata.Database]{createdAt: now, value: db}
		c.mu.Unlock()
		metrics.WatcherEvents.WithLabelValues("database").Inc()

	default:
		log.Warnf("received unknown metadata watcher event: %s", ev.Key)
		metrics.WatcherUnknownKeys.Inc()
	}
}

// FetchWorkspace resolves a workspace by id or name, per spec.md §4.I:
// if handle already looks like an "lwk:" identifier it is used
// directly, otherwise it is resolved through the workspace-alias
// mapping first. On a cache miss, both the id and name cache slots are
// populated, sharing one timestamp.
func (c *Cache) FetchWorkspace(ctx context.Context, handle string) (metadata.Workspace, error) {
	now := time.Now()

	c.mu.RLock()
	if e, ok := c.workspaces[handle]; ok && e.fresh(now) {
		c.mu.RUnlock()
		tracing.FromContext(ctx).InstantEvent("configFetch", "cache hit on "+handle)
		metrics.CacheHits.WithLabelValues("workspace").Inc()
		return e.value, nil
	}
	c.mu.RUnlock()

	metrics.CacheMisses.WithLabelValues("workspace").Inc()
	span := tracing.FromContext(ctx).Span("configFetch", "cache miss on "+handle)
	defer span()

	id := handle
	if !strings.HasPrefix(handle, string(identifier.NamespaceWorkspace)+":") {
		aliasBytes, ok, err := c.store.Get(ctx, "/landtable/workspaceAliases/"+handle)
		if err != nil {
			return metadata.Workspace{}, errors.Wrap(err, "could not fetch workspace alias")
		}
		if !ok {
			return metadata.Workspace{}, apierror.NotFoundf("workspace %s does not exist", handle)
		}
		id = string(aliasBytes)
	}

	wsBytes, ok, err := c.store.Get(ctx, "/landtable/workspaces/"+id+"/meta")
	if err != nil {
		return metadata.Workspace{}, errors.Wrap(err, "could not fetch workspace")
	}
	if !ok {
		return metadata.Workspace{}, apierror.NotFoundf("workspace %s does not exist", handle)
	}

	var ws metadata.Workspace
	if err := json.Unmarshal(wsBytes, &ws); err != nil {
		return metadata.Workspace{}, errors.Wrap(err, "could not decode workspace")
	}

	created := entry[metadata.Workspace]{createdAt: now, value: ws}
	c.mu.Lock()
	c.workspaces[ws.ID.String()] = created
	c.workspaces[ws.Name] = created
	c.mu.Unlock()

	return ws, nil
}

// FetchTable resolves a table by id or name within a workspace, per
// spec.md §4.I. Analogous to FetchWorkspace, scoped to that workspace's
// alias prefix.
func (c *Cache) FetchTable(ctx context.Context, workspaceID identifier.WorkspaceIdentifier, handle string) (metadata.Table, error) {
	now := time.Now()

	c.mu.RLock()
	if e, ok := c.tables[handle]; ok && e.fresh(now) {
		c.mu.RUnlock()
		tracing.FromContext(ctx).InstantEvent("configFetch", "cache hit on "+workspaceID.String()+"/"+handle)
		metrics.CacheHits.WithLabelValues("table").Inc()
		return e.value, nil
	}
	c.mu.RUnlock()

	metrics.CacheMisses.WithLabelValues("table").Inc()
	span := tracing.FromContext(ctx).Span("configFetch", "cache miss on "+workspaceID.String()+"/"+handle)
	defer span()

	id := handle
	if !strings.HasPrefix(handle, string(identifier.NamespaceTable)+":") {
		aliasBytes, ok, err := c.store.Get(ctx, "/landtable/workspaces/"+workspaceID.String()+"/tableAliases/"+handle)
		if err != nil {
			return metadata.Table{}, errors.Wrap(err, "could not fetch table alias")
		}
		if !ok {
			return metadata.Table{}, apierror.NotFoundf("table %s/%s does not exist", workspaceID, handle)
		}
		id = string(aliasBytes)
	}

	tblBytes, ok, err := c.store.Get(ctx, "/landtable/workspaces/"+workspaceID.String()+"/tables/"+id)
	if err != nil {
		return metadata.Table{}, errors.Wrap(err, "could not fetch table")
	}
	if !ok {
		return metadata.Table{}, apierror.NotFoundf("table %s/%s does not exist", workspaceID, handle)
	}

	var tbl metadata.Table
	if err := json.Unmarshal(tblBytes, &tbl); err != nil {
		return metadata.Table{}, errors.Wrap(err, "could not decode table")
	}

	created := entry[metadata.Table]{createdAt: now, value: tbl}
	c.mu.Lock()
	c.tables[tbl.ID.String()] = created
	c.tables[tbl.Name] = created
	c.mu.Unlock()

	return tbl, nil
}

// FetchDatabase resolves a database replica by id. Databases do not
// support aliases (spec.md §4.I).
func (c *Cache) FetchDatabase(ctx context.Context, id identifier.DatabaseIdentifier) (metadata.Database, error) {
	now := time.Now()

	c.mu.RLock()
	if e, ok := c.databases[id.String()]; ok && e.fresh(now) {
		c.mu.RUnlock()
		tracing.FromContext(ctx).InstantEvent("configFetch", "cache hit on "+id.String())
		metrics.CacheHits.WithLabelValues("database").Inc()
		return e.value, nil
	}
	c.mu.RUnlock()

	metrics.CacheMisses.WithLabelValues("database").Inc()
	span := tracing.FromContext(ctx).Span("configFetch", "cache miss on "+id.String())
	defer span()

	dbBytes, ok, err := c.store.Get(ctx, "/landtable/databases/"+id.String())
	if err != nil {
		return metadata.Database{}, errors.Wrap(err, "could not fetch database")
	}
	if !ok {
		return metadata.Database{}, apierror.NotFoundf("database %s does not exist", id)
	}

	var db metadata.Database
	if err := json.Unmarshal(dbBytes, &db); err != nil {
		return metadata.Database{}, errors.Wrap(err, "could not decode database")
	}

	c.mu.Lock()
	c.databases[id.String()] = entry[metadata.Database]{createdAt: now, value: db}
	c.mu.Unlock()

	return db, nil
}
