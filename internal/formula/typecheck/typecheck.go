// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package typecheck implements the formula language's bidirectional
// type checker, grounded on original_source/landtable/formula/parse.py
// (specifically ASTNode.resolve_type on each node class).
//
// Unlike the original, which mutates each node's operands in place to
// insert Cast nodes, ResolveType here returns a new, fully-typed tree:
// lowering only ever sees the returned value, never the raw parse
// tree. This is the reimplementation spec.md §9 calls for ("a cleaner
// reimplementation returns a new, type-checked AST layered over the
// parse tree").
package typecheck

import (
	"github.com/pkg/errors"

	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/formula/lexer"
)

// Error is a formula type error, reported as a 400-class error by
// callers.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func errf(format string, args ...any) error {
	return &Error{msg: sprintf(format, args...)}
}

func sprintf(format string, args ...any) string {
	return errors.Errorf(format, args...).Error()
}

// ResolveType type-checks node against env, returning its resolved type
// and an equivalent tree with explicit Cast nodes inserted wherever an
// implicit coercion is required.
func ResolveType(node ast.Node, env *ast.Environment) (ast.Type, ast.Node, error) {
	switch n := node.(type) {
	case *ast.Number:
		return ast.NUMBER, n, nil

	case *ast.String:
		return ast.STRING, n, nil

	case *ast.Variable:
		typ, ok := env.Variables[n.Name]
		if !ok {
			return nil, nil, errf("variable %s does not exist", n.Name)
		}
		return typ, n.WithType(typ), nil

	case *ast.UnOp:
		return resolveUnOp(n, env)

	case *ast.BinOp:
		return resolveBinOp(n, env)

	case *ast.FunctionCall:
		return resolveFunctionCall(n, env)

	case *ast.Array:
		return resolveArray(n, env)

	case *ast.Cast:
		// Casts may already be present if a caller is re-resolving an
		// already-typed tree; treat them as transparent.
		return n.Type_, n, nil

	default:
		return nil, nil, errf("unsupported node type %T", node)
	}
}

// maybeCast wraps node in a Cast to target unless its resolved type is
// already a subtype of target, mirroring the BinOp/UnOp/Array coercion
// rule throughout spec.md §4.E.
func maybeCast(node ast.Node, resolvedType, target ast.Type) ast.Node {
	if resolvedType.IsSubtype(target) {
		return node
	}
	return ast.NewCast(node, target)
}

func resolveUnOp(n *ast.UnOp, env *ast.Environment) (ast.Type, ast.Node, error) {
	if n.Op != lexer.MINUS {
		return nil, nil, errf("unsupported unary operator %s", n.Op)
	}

	rightType, right, err := ResolveType(n.Right, env)
	if err != nil {
		return nil, nil, err
	}

	right = maybeCast(right, rightType, ast.NUMBER)
	return ast.NUMBER, n.WithTypedOperand(right, ast.NUMBER), nil
}

var arithmeticOps = map[lexer.Kind]bool{
	lexer.MUL: true, lexer.DIV: true, lexer.PLUS: true, lexer.MINUS: true,
	lexer.LT: true, lexer.GT: true, lexer.LE: true, lexer.GE: true, lexer.NE: true,
}

var comparisonOps = map[lexer.Kind]bool{
	lexer.EQ: true, lexer.NE: true, lexer.LT: true, lexer.GT: true, lexer.LE: true, lexer.GE: true,
}

func resolveBinOp(n *ast.BinOp, env *ast.Environment) (ast.Type, ast.Node, error) {
	leftType, left, err := ResolveType(n.Left, env)
	if err != nil {
		return nil, nil, err
	}
	rightType, right, err := ResolveType(n.Right, env)
	if err != nil {
		return nil, nil, err
	}

	var resultType ast.Type
	switch {
	case arithmeticOps[n.Op]:
		resultType = ast.NUMBER
	case n.Op == lexer.AMPERSAND:
		resultType = ast.STRING
	case n.Op == lexer.EQ:
		// The equality operator's result type is the RIGHT operand's
		// resolved type -- an asymmetric rule preserved verbatim per
		// spec.md §9 Open Question 3.
		resultType = rightType
	default:
		return nil, nil, errf("unsupported binary operator %s", n.Op)
	}

	left = maybeCast(left, leftType, resultType)
	right = maybeCast(right, rightType, resultType)

	finalType := resultType
	if comparisonOps[n.Op] {
		finalType = ast.BOOLEAN
	}

	return finalType, n.WithTypedOperands(left, right, finalType), nil
}

func resolveFunctionCall(n *ast.FunctionCall, env *ast.Environment) (ast.Type, ast.Node, error) {
	validator, ok := env.Functions[n.Name]
	if !ok {
		return nil, nil, errf("function %s does not exist", n.Name)
	}

	argTypes := make([]ast.Type, len(n.Args))
	args := make([]ast.Node, len(n.Args))
	for i, arg := range n.Args {
		typ, resolved, err := ResolveType(arg, env)
		if err != nil {
			return nil, nil, err
		}
		argTypes[i] = typ
		args[i] = resolved
	}

	resultType, newArgs, err := validator(args, argTypes)
	if err != nil {
		return nil, nil, err
	}

	return resultType, n.WithTypedArgs(newArgs, resultType), nil
}

func resolveArray(n *ast.Array, env *ast.Environment) (ast.Type, ast.Node, error) {
	resolvedTypes := make([]ast.Type, len(n.Elements))
	resolved := make([]ast.Node, len(n.Elements))

	for i, elem := range n.Elements {
		typ, node, err := ResolveType(elem, env)
		if err != nil {
			return nil, nil, err
		}
		resolvedTypes[i] = typ
		resolved[i] = node
	}

	unionTypes := make([]ast.Type, len(resolvedTypes))
	copy(unionTypes, resolvedTypes)
	inner := ast.NewUnion(unionTypes...)
	listType := ast.List{Inner: inner}

	newElements := make([]ast.Node, len(resolved))
	for i, node := range resolved {
		newElements[i] = maybeCast(node, resolvedTypes[i], listType)
	}

	return listType, n.WithTypedElements(newElements, listType), nil
}

// CastArgs is the shared helper registered functions use to validate
// arity and insert casts on positional arguments, grounded on
// original_source/landtable/formula/sql/functions.py's `cast` helper.
func CastArgs(name string, args []ast.Node, argTypes []ast.Type, expected []ast.Type) ([]ast.Node, error) {
	if len(args) != len(expected) {
		return nil, errf("%s expected %d arguments, got %d", name, len(expected), len(args))
	}

	out := make([]ast.Node, len(args))
	for i := range args {
		out[i] = maybeCast(args[i], argTypes[i], expected[i])
	}
	return out, nil
}
