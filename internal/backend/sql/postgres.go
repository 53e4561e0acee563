// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package sql implements the Postgres backend (spec.md §4.L): one
// pgxpool.Pool per connection_url, lazily created and cached for
// process lifetime, executing a Transaction's operations in strict
// order on a single physical connection at a chosen isolation level.
// Grounded on original_source/landtable/backends/postgres_backend.go
// for the lowering/execution semantics, and on the teacher's
// internal/util/stdpool (OpenMySQLAsTarget's ping/retry/lazy-pool
// idiom) for the pooling shape -- adapted from database/sql to
// pgxpool because the spec's STRICT/RELAXED/NONE isolation levels map
// directly onto pgx.TxOptions in a way database/sql cannot express.
package sql

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamawatermelo/landtable/internal/apierror"
	"github.com/iamawatermelo/landtable/internal/backend"
	"github.com/iamawatermelo/landtable/internal/formula"
	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/formula/registry"
	"github.com/iamawatermelo/landtable/internal/identifier"
	"github.com/iamawatermelo/landtable/internal/metadata"
	"github.com/iamawatermelo/landtable/internal/metrics"
	"github.com/iamawatermelo/landtable/internal/tracing"
	"github.com/iamawatermelo/landtable/internal/txn"
)

// ErrNotImplemented is returned by Create, Update, and UpdateByFormula,
// which this backend does not execute (spec.md §4.L).
var ErrNotImplemented = errors.New("operation not implemented by the sql backend")

// Backend is the Postgres implementation of backend.Backend.
type Backend struct {
	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

// New returns a Backend with no pools open yet.
func New() *Backend {
	return &Backend{pools: make(map[string]*pgxpool.Pool)}
}

var _ backend.Backend = (*Backend)(nil)

// Information implements backend.Backend.
func (b *Backend) Information() backend.Information {
	return backend.Information{
		TransactionType: backend.Strong,
		ConfigTypes:     []metadata.DatabaseType{metadata.DatabasePostgresV0},
	}
}

// pool returns the pool for connURL, opening it (under a double-checked
// lock, per spec.md §5) if this is the first request to see it.
func (b *Backend) pool(ctx context.Context, connURL string) (*pgxpool.Pool, error) {
	b.mu.Lock()
	if p, ok := b.pools[connURL]; ok {
		b.mu.Unlock()
		return p, nil
	}
	b.mu.Unlock()

	p, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, errors.Wrap(err, "could not open connection pool")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.pools[connURL]; ok {
		p.Close()
		return existing, nil
	}
	b.pools[connURL] = p
	metrics.ConnectionPools.Set(float64(len(b.pools)))
	return p, nil
}

func isolationFor(c txn.Consistency) pgx.TxIsoLevel {
	switch c {
	case txn.Strict:
		return pgx.Serializable
	case txn.Relaxed:
		return pgx.RepeatableRead
	default:
		return pgx.ReadCommitted
	}
}

// Execute implements backend.Backend.
func (b *Backend) Execute(ctx context.Context, db metadata.Database, table metadata.Table, tx txn.Transaction, consistency txn.Consistency) ([]txn.RowResult, error) {
	if db.Type != metadata.DatabasePostgresV0 {
		return nil, apierror.Internalf(nil, "sql backend cannot serve database type %s", db.Type)
	}

	pool, err := b.pool(ctx, db.ConnectionURL)
	if err != nil {
		return nil, apierror.Wrap(apierror.TemporarilyUnavailable, err, "could not reach database")
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, apierror.Wrap(apierror.TemporarilyUnavailable, err, "could not acquire connection")
	}
	defer conn.Release()

	span := tracing.FromContext(ctx).Span("db-execute", "execute transaction")
	defer span()

	accessMode := pgx.ReadWrite
	if tx.ReadOnly() {
		accessMode = pgx.ReadOnly
	}

	pgTx, err := conn.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:       isolationFor(consistency),
		AccessMode:     accessMode,
		DeferrableMode: pgx.Deferrable,
	})
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err, "could not begin transaction")
	}
	defer func() {
		// Rollback after a successful Commit is a documented no-op,
		// so this unconditional defer is safe on every exit path,
		// including context cancellation (spec.md §5).
		if rbErr := pgTx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.WithError(rbErr).Warn("could not roll back transaction")
		}
	}()

	results := make([]txn.RowResult, len(tx.Ops))
	for i, op := range tx.Ops {
		result, err := b.executeOp(ctx, pgTx, db, table, op, tx.UseID)
		if err != nil {
			kind := apierror.InternalError
			if apiErr, ok := apierror.As(err); ok {
				kind = apiErr.Kind
			}
			metrics.TransactionErrors.WithLabelValues(string(kind)).Inc()
			return nil, err
		}
		results[i] = result
	}

	if err := pgTx.Commit(ctx); err != nil {
		return nil, apierror.Wrap(apierror.InternalError, err, "could not commit transaction")
	}

	return results, nil
}

func (b *Backend) executeOp(ctx context.Context, pgTx pgx.Tx, db metadata.Database, table metadata.Table, op txn.Operation, useID bool) (txn.RowResult, error) {
	switch op.Type {
	case txn.OpFetch:
		return b.executeFetch(ctx, pgTx, db, table, *op.Fetch, useID)
	case txn.OpDelete:
		return b.executeDelete(ctx, pgTx, db, table, *op.Delete, useID)
	case txn.OpCreate, txn.OpUpdate, txn.OpUpdateByFormula:
		return txn.RowResult{}, apierror.Wrap(apierror.InternalError, ErrNotImplemented, "operation %s is not implemented", op.Type)
	default:
		return txn.RowResult{}, apierror.BadRequestf("unknown operation type %s", op.Type)
	}
}

// environment builds the formula type environment described in
// spec.md §4.L: variables keyed by physical column name, with the
// table's configured id/created-at columns wired in as well-known
// fields.
func environment(db metadata.Database, table metadata.Table) (*ast.Environment, metadata.TableReplicaConfig, error) {
	cfg := table.FetchReplicaConfig(db.ID)
	if cfg.IDColumn == nil || cfg.CreatedAtColumn == nil {
		return nil, cfg, apierror.Internalf(nil, "table %s is missing id_column/created_at_column configuration for database %s", table.Name, db.ID)
	}

	variables := make(map[string]ast.Type, len(table.ExposedFields))
	for _, f := range table.ExposedFields {
		t, err := f.TypeToASTType()
		if err != nil {
			continue
		}
		variables[f.FetchReplicaConfig(db.ID).ColumnName] = t
	}

	return registry.Environment(variables, *cfg.IDColumn, *cfg.CreatedAtColumn), cfg, nil
}

// lowerTarget lowers a Target to a SQL predicate and its parameter
// values, per spec.md §4.L: a RowTarget becomes `<id_column> = $N`, a
// FormulaTarget is lowered through the formula pipeline.
func lowerTarget(target txn.Target, env *ast.Environment, idColumn string) (string, []any, error) {
	switch {
	case target.Row != nil:
		return idColumn + " = $1", []any{target.Row.ID.UUID.String()}, nil
	case target.Formula != nil:
		return formula.ToSQL(string(target.Formula.Formula), env)
	default:
		return "", nil, apierror.BadRequestf("target has neither a row nor a formula")
	}
}

// physicalColumns returns the fields resolved by op.Fields unioned with
// the table's id/created-at columns, and the full db_columns list to
// project (spec.md §4.L).
func physicalColumns(table metadata.Table, db metadata.Database, cfg metadata.TableReplicaConfig, fields txn.FieldSet) ([]metadata.Field, []string) {
	resolved := table.ResolveColumns(fields)
	columns := make([]string, 0, len(resolved)+2)
	seen := map[string]bool{*cfg.IDColumn: true, *cfg.CreatedAtColumn: true}
	columns = append(columns, *cfg.IDColumn, *cfg.CreatedAtColumn)
	for _, f := range resolved {
		col := f.FetchReplicaConfig(db.ID).ColumnName
		if seen[col] {
			continue
		}
		seen[col] = true
		columns = append(columns, col)
	}
	return resolved, columns
}

func (b *Backend) executeFetch(ctx context.Context, pgTx pgx.Tx, db metadata.Database, table metadata.Table, op txn.Fetch, useID bool) (txn.RowResult, error) {
	env, cfg, err := environment(db, table)
	if err != nil {
		return txn.RowResult{}, err
	}

	predicate, values, err := lowerTarget(op.Target, env, *cfg.IDColumn)
	if err != nil {
		return txn.RowResult{}, apierror.Wrap(apierror.BadRequest, err, "could not lower fetch target")
	}

	resolved, columns := physicalColumns(table, db, cfg, op.Fields)

	query := "SELECT " + strings.Join(columns, ", ") + " FROM " + cfg.TableName +
		" WHERE " + predicate + " LIMIT " + limitParam(len(values)+1)
	values = append(values, op.Limit)

	rows, err := pgTx.Query(ctx, query, values...)
	if err != nil {
		return txn.RowResult{}, apierror.Internalf(map[string]any{"sql": query, "values": values}, "fetch query failed: %v", err)
	}
	defer rows.Close()

	result, err := scanRows(rows, columns, resolved, cfg, db.ID, useID)
	if err != nil {
		return txn.RowResult{}, err
	}
	return result, nil
}

func (b *Backend) executeDelete(ctx context.Context, pgTx pgx.Tx, db metadata.Database, table metadata.Table, op txn.Delete, useID bool) (txn.RowResult, error) {
	env, cfg, err := environment(db, table)
	if err != nil {
		return txn.RowResult{}, err
	}

	predicate, values, err := lowerTarget(op.Target, env, *cfg.IDColumn)
	if err != nil {
		return txn.RowResult{}, apierror.Wrap(apierror.BadRequest, err, "could not lower delete target")
	}

	resolved, columns := physicalColumns(table, db, cfg, op.Fields)
	colList := strings.Join(columns, ", ")

	query := "DELETE FROM " + cfg.TableName +
		" WHERE ctid = ANY(ARRAY(SELECT ctid FROM " + cfg.TableName +
		" WHERE " + predicate + " LIMIT " + limitParam(len(values)+1) + "))" +
		" RETURNING " + colList
	values = append(values, op.Limit)

	rows, err := pgTx.Query(ctx, query, values...)
	if err != nil {
		return txn.RowResult{}, apierror.Internalf(map[string]any{"sql": query, "values": values}, "delete query failed: %v", err)
	}
	defer rows.Close()

	return scanRows(rows, columns, resolved, cfg, db.ID, useID)
}

func limitParam(n int) string {
	return "$" + strconv.Itoa(n)
}

// scanRows maps returned physical rows to txn.Row values, keyed by
// field identifier or name per transaction.use_id (spec.md §4.L).
func scanRows(rows pgx.Rows, columns []string, fields []metadata.Field, cfg metadata.TableReplicaConfig, dbID identifier.DatabaseIdentifier, useID bool) (txn.RowResult, error) {
	byColumn := make(map[string]metadata.Field, len(fields))
	for _, f := range fields {
		byColumn[f.FetchReplicaConfig(dbID).ColumnName] = f
	}

	var out []txn.Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return txn.RowResult{}, apierror.Wrap(apierror.InternalError, err, "could not scan row")
		}

		row := txn.Row{Contents: make(map[string]any, len(columns))}
		for i, col := range columns {
			switch col {
			case *cfg.IDColumn:
				if s, ok := values[i].(string); ok {
					if u, err := uuid.Parse(s); err == nil {
						row.ID = identifier.RowIdentifier{Identifier: identifier.New(identifier.NamespaceRow, u)}
					}
				}
			case *cfg.CreatedAtColumn:
				row.CreatedAt = formatValue(values[i])
			default:
				f, ok := byColumn[col]
				if !ok {
					continue
				}
				key := f.Name
				if useID {
					key = f.ID.String()
				}
				row.Contents[key] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return txn.RowResult{}, apierror.Wrap(apierror.InternalError, err, "row iteration failed")
	}

	return txn.RowResult{Rows: out}, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case string:
		return t
	default:
		return ""
	}
}
