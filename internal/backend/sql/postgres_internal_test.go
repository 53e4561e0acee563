// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package sql

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawatermelo/landtable/internal/identifier"
	"github.com/iamawatermelo/landtable/internal/metadata"
	"github.com/iamawatermelo/landtable/internal/txn"
)

func testDB() metadata.Database {
	return metadata.Database{
		ID:   identifier.DatabaseIdentifier{Identifier: identifier.New(identifier.NamespaceDatabase, uuid.New())},
		Type: metadata.DatabasePostgresV0,
	}
}

func testTable() (metadata.Table, metadata.Database) {
	idCol, createdCol := "id", "created_at"
	db := testDB()
	age := metadata.Field{
		ID:   identifier.FieldIdentifier{Identifier: identifier.New(identifier.NamespaceField, uuid.New())},
		Name: "age",
		Type: metadata.FieldNumber,
	}
	return metadata.Table{
		Name:          "people",
		ExposedFields: []metadata.Field{age},
		ReplicaConfig: map[string]metadata.TableReplicaConfig{
			db.ID.String(): {TableName: "people", IDColumn: &idCol, CreatedAtColumn: &createdCol},
		},
	}, db
}

func TestEnvironmentErrorsWithoutIDColumnConfig(t *testing.T) {
	db := testDB()
	table := metadata.Table{Name: "people"}
	_, _, err := environment(db, table)
	assert.Error(t, err)
}

func TestEnvironmentBuildsVariablesFromExposedFields(t *testing.T) {
	table, db := testTable()
	env, cfg, err := environment(db, table)
	require.NoError(t, err)
	assert.Equal(t, "people", cfg.TableName)
	require.NotNil(t, env)
}

func TestLowerTargetRowForm(t *testing.T) {
	table, db := testTable()
	env, cfg, err := environment(db, table)
	require.NoError(t, err)

	rowID := identifier.New(identifier.NamespaceRow, uuid.New())
	target := txn.Target{Row: &txn.RowTarget{ID: identifier.RowIdentifier{Identifier: rowID}}}

	predicate, values, err := lowerTarget(target, env, *cfg.IDColumn)
	require.NoError(t, err)
	assert.Equal(t, "id = $1", predicate)
	require.Len(t, values, 1)
	assert.Equal(t, rowID.UUID.String(), values[0])
}

func TestLowerTargetRejectsEmptyTarget(t *testing.T) {
	table, db := testTable()
	env, cfg, err := environment(db, table)
	require.NoError(t, err)

	_, _, err = lowerTarget(txn.Target{}, env, *cfg.IDColumn)
	assert.Error(t, err)
}

func TestPhysicalColumnsIncludesIDAndCreatedAtOnce(t *testing.T) {
	table, db := testTable()
	_, cfg, err := environment(db, table)
	require.NoError(t, err)

	resolved, columns := physicalColumns(table, db, cfg, nil)
	assert.Len(t, resolved, 1)
	assert.ElementsMatch(t, []string{"id", "created_at", "age"}, columns)
}

func TestLimitParam(t *testing.T) {
	assert.Equal(t, "$3", limitParam(3))
}
