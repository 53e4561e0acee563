// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/formula/parser"
	"github.com/iamawatermelo/landtable/internal/formula/registry"
	"github.com/iamawatermelo/landtable/internal/formula/typecheck"
)

func resolve(t *testing.T, formula string) (ast.Type, ast.Node) {
	t.Helper()
	node, err := parser.ParseString(formula)
	require.NoError(t, err)
	env := registry.Environment(nil, "id", "created_time")
	typ, resolved, err := typecheck.ResolveType(node, env)
	require.NoError(t, err)
	return typ, resolved
}

func TestNowReturnsDatetime(t *testing.T) {
	typ, _ := resolve(t, "NOW()")
	assert.Equal(t, ast.DATETIME, typ)
}

func TestCreatedTimeReturnsDatetime(t *testing.T) {
	typ, _ := resolve(t, "CREATED_TIME()")
	assert.Equal(t, ast.DATETIME, typ)
}

func TestDatetimeDiffReturnsNumber(t *testing.T) {
	typ, _ := resolve(t, `DATETIME_DIFF(NOW(), CREATED_TIME(), "days")`)
	assert.Equal(t, ast.NUMBER, typ)
}

func TestDatetimeDiffRejectsUnknownUnit(t *testing.T) {
	node, err := parser.ParseString(`DATETIME_DIFF(NOW(), CREATED_TIME(), "fortnights")`)
	require.NoError(t, err)
	_, _, err = typecheck.ResolveType(node, registry.Environment(nil, "id", "created_time"))
	assert.Error(t, err)
}

func TestDatetimeDiffRejectsNonLiteralUnit(t *testing.T) {
	node, err := parser.ParseString(`DATETIME_DIFF(NOW(), CREATED_TIME(), CREATED_TIME())`)
	require.NoError(t, err)
	_, _, err = typecheck.ResolveType(node, registry.Environment(nil, "id", "created_time"))
	assert.Error(t, err)
}

func TestDatetimeDiffRejectsWrongArity(t *testing.T) {
	node, err := parser.ParseString(`DATETIME_DIFF(NOW(), CREATED_TIME())`)
	require.NoError(t, err)
	_, _, err = typecheck.ResolveType(node, registry.Environment(nil, "id", "created_time"))
	assert.Error(t, err)
}

func TestRecognizedUnits(t *testing.T) {
	assert.True(t, registry.DatetimeDiffUnit("days"))
	assert.True(t, registry.DatetimeDiffUnit("Q"))
	assert.True(t, registry.DatetimeDiffUnit("milliseconds"))
	assert.False(t, registry.DatetimeDiffUnit("fortnights"))
}
