// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// This file exercises the Postgres backend end to end against a real
// container via internal/gatewaytest.Fixture: create a physical table,
// seed a row, then Fetch and Delete it through backend.Backend.Execute
// exactly as internal/httpapi would call it.
package sql_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	sqlbackend "github.com/iamawatermelo/landtable/internal/backend/sql"
	"github.com/iamawatermelo/landtable/internal/gatewaytest"
	"github.com/iamawatermelo/landtable/internal/identifier"
	"github.com/iamawatermelo/landtable/internal/metadata"
	"github.com/iamawatermelo/landtable/internal/txn"
)

func TestBackendExecutesFetchAndDeleteAgainstRealPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in -short mode")
	}

	ctx := context.Background()
	fixture, cleanup, err := gatewaytest.NewFixture(ctx)
	require.NoError(t, err)
	defer cleanup()

	_, err = fixture.Pool.Exec(ctx, `
		CREATE TABLE people (
			id text PRIMARY KEY,
			created_at timestamptz NOT NULL,
			age integer NOT NULL
		)
	`)
	require.NoError(t, err)

	rowUUID := uuid.New()
	_, err = fixture.Pool.Exec(ctx,
		`INSERT INTO people (id, created_at, age) VALUES ($1, now(), $2)`,
		rowUUID.String(), 42)
	require.NoError(t, err)

	idCol, createdCol := "id", "created_at"
	db := metadata.Database{
		ID:            identifier.DatabaseIdentifier{Identifier: identifier.New(identifier.NamespaceDatabase, uuid.New())},
		Type:          metadata.DatabasePostgresV0,
		ConnectionURL: fixture.ConnectionURL,
	}
	ageField := metadata.Field{
		ID:   identifier.FieldIdentifier{Identifier: identifier.New(identifier.NamespaceField, uuid.New())},
		Name: "age",
		Type: metadata.FieldNumber,
	}
	table := metadata.Table{
		Name:          "people",
		ExposedFields: []metadata.Field{ageField},
		ReplicaConfig: map[string]metadata.TableReplicaConfig{
			db.ID.String(): {TableName: "people", IDColumn: &idCol, CreatedAtColumn: &createdCol},
		},
	}

	rowTarget := txn.Target{Row: &txn.RowTarget{
		ID: identifier.RowIdentifier{Identifier: identifier.New(identifier.NamespaceRow, rowUUID)},
	}}

	be := sqlbackend.New()

	fetchTx := txn.Transaction{
		UseID: false,
		Ops: []txn.Operation{
			{Type: txn.OpFetch, Fetch: &txn.Fetch{Target: rowTarget, Limit: 1}},
		},
	}
	results, err := be.Execute(ctx, db, table, fetchTx, txn.Strict)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Rows, 1)

	row := results[0].Rows[0]
	require.Equal(t, rowUUID.String(), row.ID.UUID.String())
	require.Equal(t, identifier.NamespaceRow, row.ID.Namespace)
	require.EqualValues(t, 42, row.Contents["age"])

	deleteTx := txn.Transaction{
		Ops: []txn.Operation{
			{Type: txn.OpDelete, Delete: &txn.Delete{Target: rowTarget, Limit: 1}},
		},
	}
	delResults, err := be.Execute(ctx, db, table, deleteTx, txn.Strict)
	require.NoError(t, err)
	require.Len(t, delResults, 1)
	require.Len(t, delResults[0].Rows, 1)

	var remaining int
	require.NoError(t, fixture.Pool.QueryRow(ctx, `SELECT count(*) FROM people`).Scan(&remaining))
	require.Equal(t, 0, remaining)
}
