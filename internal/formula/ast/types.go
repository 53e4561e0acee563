// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package ast defines the Landtable formula AST node types and the
// formula type lattice, grounded on
// original_source/landtable/formula/parse.py.
package ast

import "sort"

// ConcreteType is one of the formula language's four scalar types.
type ConcreteType int

const (
	NUMBER ConcreteType = iota
	STRING
	DATETIME
	BOOLEAN
)

func (c ConcreteType) String() string {
	switch c {
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case DATETIME:
		return "datetime"
	case BOOLEAN:
		return "boolean"
	default:
		return "unknown"
	}
}

// Type is implemented by every member of the formula type lattice:
// ConcreteType, Union, and List.
type Type interface {
	// IsSubtype reports whether this type is a subtype of rhs, per the
	// subtype rule in spec.md §4.C.
	IsSubtype(rhs Type) bool
	String() string
}

// IsSubtype for a bare ConcreteType: equal to another concrete type, a
// member of a Union, or (degenerate case) itself.
func (c ConcreteType) IsSubtype(rhs Type) bool {
	switch r := rhs.(type) {
	case ConcreteType:
		return c == r
	case Union:
		return r.Contains(c)
	default:
		return false
	}
}

// Union is a flattened set of concrete types, like "number | string".
type Union struct {
	members map[ConcreteType]struct{}
}

// NewUnion builds a Union from a set of types, flattening any nested
// Unions, exactly as the Python ASTTypeUnion constructor does.
func NewUnion(types ...Type) Union {
	members := make(map[ConcreteType]struct{})
	for _, t := range types {
		switch v := t.(type) {
		case Union:
			for m := range v.members {
				members[m] = struct{}{}
			}
		case ConcreteType:
			members[v] = struct{}{}
		}
	}
	return Union{members: members}
}

// Contains reports whether c is a member of the union.
func (u Union) Contains(c ConcreteType) bool {
	_, ok := u.members[c]
	return ok
}

// Len returns the number of distinct members.
func (u Union) Len() int { return len(u.members) }

// Sole returns the union's single member, iff Len() == 1.
func (u Union) Sole() (ConcreteType, bool) {
	if len(u.members) != 1 {
		return 0, false
	}
	for m := range u.members {
		return m, true
	}
	return 0, false
}

// IsSubtype: a union is a subtype of another union iff it's a subset;
// a union is a subtype of a concrete type only in the degenerate case
// where it has exactly one member equal to that type.
func (u Union) IsSubtype(rhs Type) bool {
	switch r := rhs.(type) {
	case Union:
		for m := range u.members {
			if !r.Contains(m) {
				return false
			}
		}
		return true
	case ConcreteType:
		sole, ok := u.Sole()
		return ok && sole == r
	default:
		return false
	}
}

func (u Union) String() string {
	names := make([]string, 0, len(u.members))
	for m := range u.members {
		names = append(names, m.String())
	}
	sort.Strings(names)
	out := ""
	for i, n := range names {
		if i > 0 {
			out += " | "
		}
		out += n
	}
	return out
}

// List is a homogeneous array type, like "[number | string]".
type List struct {
	Inner Type
}

// IsSubtype: list types are only ever compared to an identical list
// type's inner type (array literals are always freshly unified, so
// there is no cross-list-type subtyping rule in the source language).
func (l List) IsSubtype(rhs Type) bool {
	r, ok := rhs.(List)
	if !ok {
		return false
	}
	return typesEqual(l.Inner, r.Inner)
}

func (l List) String() string {
	return "[" + l.Inner.String() + "]"
}

func typesEqual(a, b Type) bool {
	return a.IsSubtype(b) && b.IsSubtype(a)
}

// Environment describes the variables, functions, and well-known field
// names available while resolving types in a single table's context.
type Environment struct {
	Variables map[string]Type
	Functions map[string]Validator

	// IDField and CreatedTimeField name the physical columns backing a
	// row's identity and creation timestamp. CREATED_TIME lowers to
	// CreatedTimeField; IDField is not read by the formula pipeline
	// (RowTarget lowering takes its id column as a separate argument).
	IDField          string
	CreatedTimeField string
}

// Validator type-checks a function call. It receives the call's
// already-resolved argument nodes and their types, and returns the
// call's result type along with a (possibly rewritten, Cast-wrapped)
// replacement argument list -- matching the function-registry contract
// in spec.md §4.F, but returning new nodes rather than mutating the
// call in place, per spec.md §9's guidance against observable AST
// mutation during typing.
type Validator func(args []Node, argTypes []Type) (Type, []Node, error)
