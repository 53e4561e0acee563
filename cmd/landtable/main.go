// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Command landtable runs the transaction gateway's HTTP server,
// grounded on the teacher's server.Config bootstrap shape
// (internal/source/server/config.go).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/iamawatermelo/landtable/internal/httpapi"
	"github.com/iamawatermelo/landtable/internal/txn"
	ltwire "github.com/iamawatermelo/landtable/internal/wire"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("landtable exited with an error")
	}
}

func run() error {
	cfg := &Config{}
	cfg.Bind(pflag.CommandLine)
	pflag.Parse()

	if err := cfg.Preflight(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gateway, cleanup, err := ltwire.NewGateway(ctx, cfg.EtcdEndpoints)
	if err != nil {
		return errors.Wrap(err, "could not assemble gateway dependencies")
	}
	defer cleanup()

	server := &httpapi.Server{
		Cache:              gateway.Cache,
		Registry:           gateway.Registry,
		DefaultConsistency: txn.Consistency(cfg.DefaultConsistency),
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	server.Routes(r)
	r.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{Addr: cfg.BindAddr, Handler: r}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("could not gracefully shut down HTTP server")
		}
	}()

	log.Infof("listening on %s", cfg.BindAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "HTTP server exited unexpectedly")
	}
	return nil
}
