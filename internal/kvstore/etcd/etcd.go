// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package etcd implements internal/kvstore.Store against a real etcd
// cluster via go.etcd.io/etcd/client/v3. This is the production
// backing store for the metadata cache (spec.md §4.I): it is not
// itself in the teacher's (cdc-sink's) dependency set, but it is the
// closest real Go ecosystem equivalent to original_source's aetcd
// client contract (Get/WatchPrefix), so it is wired in here rather
// than hand-rolled (see DESIGN.md).
package etcd

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamawatermelo/landtable/internal/kvstore"
)

// Store adapts a clientv3.Client to the kvstore.Store contract.
type Store struct {
	client *clientv3.Client
}

// New dials an etcd cluster at the given endpoints.
func New(endpoints []string) (*Store, error) {
	client, err := clientv3.New(clientv3.Config{Endpoints: endpoints})
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to etcd")
	}
	return &Store{client: client}, nil
}

var _ kvstore.Store = (*Store)(nil)

// Get implements kvstore.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return nil, false, errors.Wrapf(err, "etcd get %s", key)
	}
	if len(resp.Kvs) == 0 {
		return nil, false, nil
	}
	return resp.Kvs[0].Value, true, nil
}

// WatchPrefix implements kvstore.Store.
func (s *Store) WatchPrefix(ctx context.Context, prefix string) (<-chan kvstore.Event, error) {
	out := make(chan kvstore.Event, 16)
	watchCh := s.client.Watch(ctx, prefix, clientv3.WithPrefix())

	go func() {
		defer close(out)
		for resp := range watchCh {
			if err := resp.Err(); err != nil {
				log.WithError(err).Warn("etcd watch stream error")
				continue
			}
			for _, ev := range resp.Events {
				if ev.Kv == nil {
					continue
				}
				select {
				case out <- kvstore.Event{Key: string(ev.Kv.Key), Value: ev.Kv.Value}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close implements kvstore.Store.
func (s *Store) Close() error {
	return s.client.Close()
}
