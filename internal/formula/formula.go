// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package formula ties the lexer, parser, typechecker, and SQL lowering
// passes together behind a single entry point, grounded on
// original_source/landtable/formula/formula.go's thin Formula wrapper.
package formula

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/formula/parser"
	"github.com/iamawatermelo/landtable/internal/formula/sqllower"
	"github.com/iamawatermelo/landtable/internal/formula/typecheck"
)

// Raw is an un-parsed formula source string, as it arrives over the
// wire embedded in an operation (spec.md §3).
type Raw string

// MarshalJSON implements json.Marshaler.
func (r Raw) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Raw) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Raw(s)
	return nil
}

// Parse lexes and parses source into an AST. An empty formula reports
// the "empty formula" error named in spec.md §4.D.
func Parse(source string) (ast.Node, error) {
	node, err := parser.ParseString(source)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, errors.New("empty formula")
	}
	return node, nil
}

// ToSQL parses, type-checks, and lowers source against env in one
// call, returning the parameterized predicate and its values -- the
// whole pipeline described by spec.md §4.B-G.
func ToSQL(source string, env *ast.Environment) (string, []any, error) {
	node, err := Parse(source)
	if err != nil {
		return "", nil, err
	}
	_, typed, err := typecheck.ResolveType(node, env)
	if err != nil {
		return "", nil, err
	}
	return sqllower.Lower(typed, env)
}
