// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package txn_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawatermelo/landtable/internal/identifier"
	"github.com/iamawatermelo/landtable/internal/metadata"
	"github.com/iamawatermelo/landtable/internal/txn"
)

func TestFieldSetRoundTripsThroughJSONArray(t *testing.T) {
	var fs txn.FieldSet
	require.NoError(t, json.Unmarshal([]byte(`["name","age"]`), &fs))
	assert.Len(t, fs, 2)
	_, ok := fs["name"]
	assert.True(t, ok)

	out, err := json.Marshal(fs)
	require.NoError(t, err)
	var back []string
	require.NoError(t, json.Unmarshal(out, &back))
	assert.ElementsMatch(t, []string{"name", "age"}, back)
}

func TestTargetUnmarshalsRowForm(t *testing.T) {
	id := identifier.New(identifier.NamespaceRow, uuid.New()).String()
	var target txn.Target
	require.NoError(t, json.Unmarshal([]byte(`{"id":"`+id+`"}`), &target))
	require.NotNil(t, target.Row)
	assert.Nil(t, target.Formula)
	assert.Equal(t, id, target.Row.ID.String())
}

func TestTargetUnmarshalsFormulaForm(t *testing.T) {
	var target txn.Target
	require.NoError(t, json.Unmarshal([]byte(`{"formula":"age > 5"}`), &target))
	require.NotNil(t, target.Formula)
	assert.Nil(t, target.Row)
	assert.EqualValues(t, "age > 5", target.Formula.Formula)
}

func TestTargetUnmarshalRejectsNeither(t *testing.T) {
	var target txn.Target
	assert.Error(t, json.Unmarshal([]byte(`{}`), &target))
}

func TestFailureStrategyValidateRequiresFailType(t *testing.T) {
	limit := 3
	fs := txn.FailureStrategy{ExecTarget: &limit}
	assert.Error(t, fs.Validate())

	fail := txn.FailEQ
	fs.FailType = &fail
	assert.NoError(t, fs.Validate())
}

func TestOperationValidateCreateRejectsUnknownField(t *testing.T) {
	table := metadata.Table{ExposedFields: []metadata.Field{{Name: "age"}}}
	op := txn.Operation{Type: txn.OpCreate, Create: &txn.Create{Row: map[string]any{"nope": 1}}}
	assert.Error(t, op.Validate(table))

	op.Create.Row = map[string]any{"age": 30}
	assert.NoError(t, op.Validate(table))
}

func TestOperationUnmarshalsByType(t *testing.T) {
	var op txn.Operation
	require.NoError(t, json.Unmarshal([]byte(`{"type":"create","create":{"row":{"age":30}}}`), &op))
	require.NotNil(t, op.Create)
	assert.Equal(t, txn.OpCreate, op.Type)
	assert.EqualValues(t, 30, op.Create.Row["age"])
}

func TestOperationUnmarshalRejectsMissingBody(t *testing.T) {
	var op txn.Operation
	assert.Error(t, json.Unmarshal([]byte(`{"type":"create"}`), &op))
}

func TestOperationRoundTripsThroughJSON(t *testing.T) {
	op := txn.Operation{Type: txn.OpDelete, Delete: &txn.Delete{
		Target: txn.Target{Formula: &txn.FormulaTarget{Formula: "age > 5"}},
		Limit:  1,
	}}
	raw, err := json.Marshal(op)
	require.NoError(t, err)

	var back txn.Operation
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, txn.OpDelete, back.Type)
	require.NotNil(t, back.Delete)
	assert.Equal(t, 1, back.Delete.Limit)
}

func TestTransactionReadOnly(t *testing.T) {
	tx := txn.Transaction{Ops: []txn.Operation{{Type: txn.OpFetch, Fetch: &txn.Fetch{}}}}
	assert.True(t, tx.ReadOnly())

	tx.Ops = append(tx.Ops, txn.Operation{Type: txn.OpDelete, Delete: &txn.Delete{}})
	assert.False(t, tx.ReadOnly())
}
