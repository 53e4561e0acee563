// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package kvstore

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process Store used by tests (internal/gatewaytest)
// and by local development, grounded on the same Get/WatchPrefix
// contract the etcd-backed implementation satisfies.
type Memory struct {
	mu       sync.Mutex
	values   map[string][]byte
	watchers []memoryWatcher
}

type memoryWatcher struct {
	prefix string
	ch     chan Event
}

// NewMemory constructs an empty Memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Put sets a key's value and notifies any matching watchers. Intended
// for test setup and for simulating external configuration pushes.
func (m *Memory) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value

	for _, w := range m.watchers {
		if strings.HasPrefix(key, w.prefix) {
			select {
			case w.ch <- Event{Key: key, Value: value}:
			default:
			}
		}
	}
}

// WatchPrefix implements Store.
func (m *Memory) WatchPrefix(ctx context.Context, prefix string) (<-chan Event, error) {
	ch := make(chan Event, 16)

	m.mu.Lock()
	m.watchers = append(m.watchers, memoryWatcher{prefix: prefix, ch: ch})
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		close(ch)
	}()

	return ch, nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
