// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package httpapi exposes the gateway's transaction endpoint (spec.md
// §6: "POST /execute") over go-chi/chi, and the Airtable-compatibility
// adapter layered on top of it. Both are explicitly out-of-core per
// spec.md §1, but are implemented here so the module runs end to end.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/iamawatermelo/landtable/internal/apierror"
	"github.com/iamawatermelo/landtable/internal/backend"
	"github.com/iamawatermelo/landtable/internal/metadatacache"
	"github.com/iamawatermelo/landtable/internal/metrics"
	"github.com/iamawatermelo/landtable/internal/tracing"
	"github.com/iamawatermelo/landtable/internal/txn"
)

// Server answers the transaction API using a metadata cache and a
// backend registry.
type Server struct {
	Cache    *metadatacache.Cache
	Registry *backend.Registry

	// DefaultConsistency is used when a request omits "consistency".
	// Defaults to txn.None if left unset.
	DefaultConsistency txn.Consistency
}

// Routes mounts the gateway's HTTP surface onto r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/execute", s.handleExecute)
}

// executeRequest is the wire shape of spec.md §6's transaction
// endpoint body.
type executeRequest struct {
	Transaction txn.Transaction `json:"transaction"`
	Table       string          `json:"table"`
	Workspace   string          `json:"workspace"`
	Consistency txn.Consistency `json:"consistency"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	ctx := tracing.WithTracer(r.Context(), tracing.New())
	tracer := tracing.FromContext(ctx)
	defer tracer.Finish()

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierror.BadRequestf("could not decode request body: %v", err))
		return
	}
	if req.Consistency == "" {
		req.Consistency = s.DefaultConsistency
		if req.Consistency == "" {
			req.Consistency = txn.None
		}
	}

	results, err := s.execute(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Server-Timing", tracer.ServerTiming())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		log.WithError(err).Warn("could not encode response body")
	}
}

func (s *Server) execute(ctx context.Context, req executeRequest) ([]txn.RowResult, error) {
	ws, err := s.Cache.FetchWorkspace(ctx, req.Workspace)
	if err != nil {
		return nil, err
	}

	table, err := s.Cache.FetchTable(ctx, ws.ID, req.Table)
	if err != nil {
		return nil, err
	}

	for _, op := range req.Transaction.Ops {
		if err := op.Validate(table); err != nil {
			return nil, err
		}
	}

	db, err := s.Cache.FetchDatabase(ctx, ws.PrimaryReplica)
	if err != nil {
		return nil, err
	}

	be, err := s.Registry.FetchBackendForConfigType(db.Type)
	if err != nil {
		return nil, apierror.Wrap(apierror.TemporarilyUnavailable, err, "no backend available for %s", db.Type)
	}

	start := time.Now()
	results, err := be.Execute(ctx, db, table, req.Transaction, req.Consistency)
	metrics.TransactionDuration.WithLabelValues(req.Workspace, req.Table).Observe(time.Since(start).Seconds())
	return results, err
}

func writeError(w http.ResponseWriter, err error) {
	apiErr, ok := apierror.As(err)
	if !ok {
		apiErr = apierror.Wrap(apierror.InternalError, err, "internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code)
	_ = json.NewEncoder(w).Encode(apiErr)
}
