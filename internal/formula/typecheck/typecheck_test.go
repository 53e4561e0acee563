// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package typecheck_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/formula/parser"
	"github.com/iamawatermelo/landtable/internal/formula/typecheck"
)

func env() *ast.Environment {
	return &ast.Environment{
		Variables: map[string]ast.Type{
			"age":  ast.NUMBER,
			"name": ast.STRING,
		},
		Functions: map[string]ast.Validator{
			"NOW": func(args []ast.Node, argTypes []ast.Type) (ast.Type, []ast.Node, error) {
				newArgs, err := typecheck.CastArgs("NOW", args, argTypes, nil)
				return ast.DATETIME, newArgs, err
			},
		},
	}
}

func resolve(t *testing.T, formula string) (ast.Type, ast.Node) {
	t.Helper()
	node, err := parser.ParseString(formula)
	require.NoError(t, err)
	typ, resolved, err := typecheck.ResolveType(node, env())
	require.NoError(t, err)
	return typ, resolved
}

func TestNumberLiteral(t *testing.T) {
	typ, _ := resolve(t, "42")
	assert.Equal(t, ast.NUMBER, typ)
}

func TestStringLiteral(t *testing.T) {
	typ, _ := resolve(t, `"hi"`)
	assert.Equal(t, ast.STRING, typ)
}

func TestVariableLookup(t *testing.T) {
	typ, _ := resolve(t, "age")
	assert.Equal(t, ast.NUMBER, typ)
}

func TestUndefinedVariableErrors(t *testing.T) {
	node, err := parser.ParseString("nonexistent")
	require.NoError(t, err)
	_, _, err = typecheck.ResolveType(node, env())
	assert.Error(t, err)
}

func TestArithmeticResultIsNumber(t *testing.T) {
	typ, _ := resolve(t, "age + 1")
	assert.Equal(t, ast.NUMBER, typ)
}

func TestArithmeticCastsStringOperand(t *testing.T) {
	_, node := resolve(t, `name + 1`)
	bin := node.(*ast.BinOp)
	_, ok := bin.Left.(*ast.Cast)
	assert.True(t, ok, "string operand of arithmetic op should be cast to number")
}

func TestAmpersandResultIsString(t *testing.T) {
	typ, _ := resolve(t, `name & "x"`)
	assert.Equal(t, ast.STRING, typ)
}

func TestAmpersandCastsNumberOperand(t *testing.T) {
	_, node := resolve(t, `age & "x"`)
	bin := node.(*ast.BinOp)
	_, ok := bin.Left.(*ast.Cast)
	assert.True(t, ok, "number operand of & should be cast to string")
}

func TestEqualityCastsOperandsToRightOperandType(t *testing.T) {
	// Deliberately asymmetric: in BinOp(l, =, r) both operands are
	// checked against r's type rather than a unified type, preserved
	// verbatim from the original; the comparison itself is boolean.
	typ, node := resolve(t, `age = name`)
	assert.Equal(t, ast.BOOLEAN, typ)
	assert.Equal(t, ast.STRING, node.(*ast.BinOp).Left.ResolvedType())
}

func TestComparisonResultIsBoolean(t *testing.T) {
	typ, _ := resolve(t, "age < 5")
	assert.Equal(t, ast.BOOLEAN, typ)
}

func TestUnaryMinusRequiresNumber(t *testing.T) {
	typ, node := resolve(t, "-age")
	assert.Equal(t, ast.NUMBER, typ)
	un := node.(*ast.UnOp)
	_, isCast := un.Right.(*ast.Cast)
	assert.False(t, isCast, "already-number operand should not be cast")
}

func TestUnaryMinusCastsStringOperand(t *testing.T) {
	_, node := resolve(t, "-name")
	un := node.(*ast.UnOp)
	_, ok := un.Right.(*ast.Cast)
	assert.True(t, ok)
}

func TestFunctionCallDispatchesToRegisteredValidator(t *testing.T) {
	typ, _ := resolve(t, "NOW()")
	assert.Equal(t, ast.DATETIME, typ)
}

func TestUnknownFunctionErrors(t *testing.T) {
	node, err := parser.ParseString("UNKNOWN_FN()")
	require.NoError(t, err)
	_, _, err = typecheck.ResolveType(node, env())
	assert.Error(t, err)
}

func TestArrayResultIsListOfUnion(t *testing.T) {
	typ, _ := resolve(t, `[age, name]`)
	list, ok := typ.(ast.List)
	require.True(t, ok)
	union, ok := list.Inner.(ast.Union)
	require.True(t, ok)
	assert.Equal(t, 2, union.Len())
}

func TestArrayOfSameTypeUnifiesToSingleMember(t *testing.T) {
	typ, _ := resolve(t, `[1, 2, 3]`)
	list, ok := typ.(ast.List)
	require.True(t, ok)
	union, ok := list.Inner.(ast.Union)
	require.True(t, ok)
	sole, ok := union.Sole()
	require.True(t, ok)
	assert.Equal(t, ast.NUMBER, sole)
}
