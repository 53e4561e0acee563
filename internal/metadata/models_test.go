// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package metadata_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/identifier"
	"github.com/iamawatermelo/landtable/internal/metadata"
)

func field(name string, t metadata.FieldType) metadata.Field {
	return metadata.Field{
		ID:   identifier.FieldIdentifier{Identifier: identifier.New(identifier.NamespaceField, uuid.New())},
		Name: name,
		Type: t,
	}
}

func TestTypeToASTTypeMapsKnownTypes(t *testing.T) {
	cases := map[metadata.FieldType]ast.Type{
		metadata.FieldNumber:    ast.NUMBER,
		metadata.FieldShortText: ast.STRING,
		metadata.FieldLongText:  ast.STRING,
		metadata.FieldEmail:     ast.STRING,
		metadata.FieldBoolean:   ast.BOOLEAN,
		metadata.FieldDatetime:  ast.DATETIME,
	}
	for ft, want := range cases {
		got, err := field("f", ft).TypeToASTType()
		require.NoError(t, err)
		assert.True(t, got.IsSubtype(want) && want.IsSubtype(got))
	}
}

func TestTypeToASTTypeRejectsUnmappableTypes(t *testing.T) {
	_, err := field("f", metadata.FieldAttachment).TypeToASTType()
	assert.Error(t, err)
}

func TestFieldReplicaConfigDefaultsToFieldName(t *testing.T) {
	f := field("age", metadata.FieldNumber)
	cfg := f.FetchReplicaConfig(identifier.DatabaseIdentifier{Identifier: identifier.New(identifier.NamespaceDatabase, uuid.New())})
	assert.Equal(t, "age", cfg.ColumnName)
}

func TestResolveColumnsNilMeansAllExposedFields(t *testing.T) {
	tbl := metadata.Table{
		ExposedFields: []metadata.Field{field("a", metadata.FieldNumber), field("b", metadata.FieldNumber)},
	}
	assert.Len(t, tbl.ResolveColumns(nil), 2)
}

func TestResolveColumnsFiltersByNameOrID(t *testing.T) {
	a := field("a", metadata.FieldNumber)
	b := field("b", metadata.FieldNumber)
	tbl := metadata.Table{ExposedFields: []metadata.Field{a, b}}

	byName := tbl.ResolveColumns(map[string]struct{}{"a": {}})
	require.Len(t, byName, 1)
	assert.Equal(t, "a", byName[0].Name)

	byID := tbl.ResolveColumns(map[string]struct{}{b.ID.String(): {}})
	require.Len(t, byID, 1)
	assert.Equal(t, "b", byID[0].Name)
}

func TestResolveFieldLooksUpByNameOrID(t *testing.T) {
	a := field("a", metadata.FieldNumber)
	tbl := metadata.Table{ExposedFields: []metadata.Field{a}}

	_, ok := tbl.ResolveField("a")
	assert.True(t, ok)
	_, ok = tbl.ResolveField(a.ID.String())
	assert.True(t, ok)
	_, ok = tbl.ResolveField("missing")
	assert.False(t, ok)
}
