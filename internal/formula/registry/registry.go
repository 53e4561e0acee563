// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package registry holds the formula language's built-in functions,
// grounded on original_source/landtable/formula/sql/functions.py.
package registry

import (
	"github.com/pkg/errors"

	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/formula/typecheck"
)

// Implementation is the SQL-lowering side of a built-in function: given
// its (already-lowered) argument SQL fragments, it produces the
// function's own SQL fragment. Kept separate from Validator so the
// typecheck and sqllower packages stay independent of each other.
type Implementation func(argSQL []string) string

// Function bundles a built-in's type-checking and lowering behavior.
type Function struct {
	Name           string
	Validate       ast.Validator
	Implementation Implementation
}

// registered is the default set of built-ins, keyed by name.
var registered = map[string]*Function{}

func register(f *Function) {
	registered[f.Name] = f
}

// Lookup returns the named built-in, if registered.
func Lookup(name string) (*Function, bool) {
	f, ok := registered[name]
	return f, ok
}

// Environment builds an ast.Environment whose Functions map dispatches
// to every registered built-in, layered over the given variables.
func Environment(variables map[string]ast.Type, idField, createdTimeField string) *ast.Environment {
	fns := make(map[string]ast.Validator, len(registered))
	for name, f := range registered {
		fns[name] = f.Validate
	}
	return &ast.Environment{
		Variables:        variables,
		Functions:        fns,
		IDField:          idField,
		CreatedTimeField: createdTimeField,
	}
}

// datetimeDiffUnits is the full unit set DATETIME_DIFF's third argument
// may name, per spec.md §4.F.
var datetimeDiffUnits = map[string]bool{
	"years": true, "months": true, "days": true, "hours": true,
	"minutes": true, "seconds": true, "milliseconds": true, "quarters": true,
	"ms": true, "s": true, "m": true, "h": true, "w": true,
	"M": true, "Q": true, "y": true,
}

func init() {
	register(&Function{
		Name: "NOW",
		Validate: func(args []ast.Node, argTypes []ast.Type) (ast.Type, []ast.Node, error) {
			newArgs, err := typecheck.CastArgs("NOW", args, argTypes, nil)
			return ast.DATETIME, newArgs, err
		},
		Implementation: func(argSQL []string) string {
			return "now()"
		},
	})

	register(&Function{
		Name: "CREATED_TIME",
		Validate: func(args []ast.Node, argTypes []ast.Type) (ast.Type, []ast.Node, error) {
			newArgs, err := typecheck.CastArgs("CREATED_TIME", args, argTypes, nil)
			return ast.DATETIME, newArgs, err
		},
		// Implementation is intentionally unset: the physical column
		// backing CREATED_TIME() is only known to the lowering pass,
		// which substitutes env.CreatedTimeField directly rather than
		// going through this table.
	})

	register(&Function{
		Name: "DATETIME_DIFF",
		Validate: func(args []ast.Node, argTypes []ast.Type) (ast.Type, []ast.Node, error) {
			if len(args) != 3 {
				return nil, nil, errors.Errorf("DATETIME_DIFF expected 3 arguments, got %d", len(args))
			}

			unitNode, ok := args[2].(*ast.String)
			if !ok {
				return nil, nil, errors.Errorf("DATETIME_DIFF's third argument must be a literal unit string")
			}
			if !datetimeDiffUnits[unitNode.Value] {
				return nil, nil, errors.Errorf("DATETIME_DIFF: unrecognized unit %q", unitNode.Value)
			}

			newArgs, err := typecheck.CastArgs("DATETIME_DIFF", args[:2], argTypes[:2],
				[]ast.Type{ast.DATETIME, ast.DATETIME})
			if err != nil {
				return nil, nil, err
			}
			newArgs = append(newArgs, unitNode)

			return ast.NUMBER, newArgs, nil
		},
		// Implementation is intentionally unset: the emitted
		// EXTRACT(unit FROM AGE(...)) splices in the literal unit
		// argument, which the lowering pass reads
		// directly off the third (already type-checked) arg node rather
		// than through this generic argSQL-only signature.
	})
}

// DatetimeDiffUnit reports whether unit is one of the recognized
// DATETIME_DIFF unit literals; the lowering pass splices the literal
// directly into the emitted EXTRACT(<unit> FROM ...) clause rather than
// translating it, per spec.md §4.F/§4.G.
func DatetimeDiffUnit(unit string) bool {
	return datetimeDiffUnits[unit]
}
