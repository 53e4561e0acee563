// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package metrics holds the gateway's Prometheus instrumentation,
// grounded on internal/staging/stage's histogram/counter vectors from
// the teacher: transaction latency, cache hit/miss, and watcher event
// counts (spec.md §2 AMBIENT STACK; not itself a spec.md component).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets are the histogram buckets (in seconds) used for every
// latency metric below, matching the teacher's convention of a shared
// bucket set across all duration histograms.
var LatencyBuckets = []float64{
	.001, .002, .005, .01, .02, .05, .1, .2, .5, 1, 2, 5, 10,
}

// TableLabels is the label set attached to per-table metrics.
var TableLabels = []string{"workspace", "table"}

var (
	// TransactionDuration records how long a backend took to execute a
	// transaction; the workspace, table and database lookups that come
	// before it are not included.
	TransactionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "landtable_transaction_duration_seconds",
		Help:    "the length of time it took to execute a transaction",
		Buckets: LatencyBuckets,
	}, TableLabels)

	// TransactionErrors counts transactions that failed, labeled by the
	// apierror.Type of the failure.
	TransactionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "landtable_transaction_errors_total",
		Help: "the number of transactions that failed, by error type",
	}, []string{"type"})

	// CacheHits and CacheMisses count metadata cache lookups, labeled
	// by the kind of entity looked up (workspace/table/database).
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "landtable_metadata_cache_hits_total",
		Help: "the number of metadata cache lookups served without a KV fetch",
	}, []string{"kind"})
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "landtable_metadata_cache_misses_total",
		Help: "the number of metadata cache lookups that required a KV fetch",
	}, []string{"kind"})

	// WatcherEvents counts events observed by the metadata watcher,
	// labeled by the kind of key path matched.
	WatcherEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "landtable_metadata_watcher_events_total",
		Help: "the number of key-value events processed by the metadata watcher",
	}, []string{"kind"})

	// WatcherUnknownKeys counts watcher events for key paths that
	// didn't match any known pattern, per spec.md §4.I ("Unknown paths
	// are logged and ignored").
	WatcherUnknownKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "landtable_metadata_watcher_unknown_keys_total",
		Help: "the number of watcher events whose key path was not recognized",
	})

	// ConnectionPools tracks how many physical database connection
	// pools the SQL backend currently holds open.
	ConnectionPools = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "landtable_sql_backend_connection_pools",
		Help: "the number of distinct connection pools currently open",
	})
)
