// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/iamawatermelo/landtable/internal/txn"
)

// Config contains the user-visible configuration for running a
// gateway process, grounded on the teacher's server.Config's
// Bind/Preflight shape.
type Config struct {
	// EtcdEndpoints is the metadata key-value store backing the
	// watcher described in spec.md §4.I.
	EtcdEndpoints []string
	// BindAddr is the address the HTTP API listens on.
	BindAddr string
	// DefaultConsistency is used when a /execute request omits the
	// consistency field.
	DefaultConsistency string
}

// Bind registers the process's command-line flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringSliceVar(
		&c.EtcdEndpoints,
		"etcdEndpoints",
		[]string{"127.0.0.1:2379"},
		"comma-separated etcd endpoints backing the metadata store")
	flags.StringVar(
		&c.BindAddr,
		"bindAddr",
		":26257",
		"the network address the transaction API listens on")
	flags.StringVar(
		&c.DefaultConsistency,
		"defaultConsistency",
		string(txn.None),
		"the isolation level used when a request omits 'consistency'")
}

// Preflight validates the configuration after flags have been parsed.
func (c *Config) Preflight() error {
	if c.BindAddr == "" {
		return errors.New("bindAddr unset")
	}
	if len(c.EtcdEndpoints) == 0 {
		return errors.New("etcdEndpoints unset")
	}
	switch txn.Consistency(c.DefaultConsistency) {
	case txn.Strict, txn.Relaxed, txn.None:
	default:
		return errors.Errorf("defaultConsistency must be one of STRICT, RELAXED, NONE (got %q)", c.DefaultConsistency)
	}
	return nil
}
