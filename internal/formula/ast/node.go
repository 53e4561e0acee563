// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package ast

import "github.com/iamawatermelo/landtable/internal/formula/lexer"

// Node is a formula AST node. Parsing produces a tree of these; the
// typecheck package walks it with ResolveType and returns a new,
// fully-typed tree (inserting Cast nodes where coercions are needed)
// rather than mutating the nodes below in place.
type Node interface {
	// ResolvedType reports the type most recently computed for this
	// node by the typechecker, or nil if it hasn't been resolved yet.
	// Lowering relies on this being populated.
	ResolvedType() Type
}

// Number is a numeric literal.
type Number struct {
	Value float64
	typ   Type
}

func NewNumber(v float64) *Number     { return &Number{Value: v, typ: NUMBER} }
func (n *Number) ResolvedType() Type  { return n.typ }

// String is a string literal (already unescaped/unquoted).
type String struct {
	Value string
	typ   Type
}

func NewString(v string) *String     { return &String{Value: v, typ: STRING} }
func (s *String) ResolvedType() Type { return s.typ }

// Variable is a reference to a named column/field, either from a bare
// identifier or from "{braced variable}" syntax.
type Variable struct {
	Name string
	typ  Type
}

func NewVariable(name string) *Variable { return &Variable{Name: name} }
func (v *Variable) ResolvedType() Type  { return v.typ }
func (v *Variable) WithType(t Type) *Variable {
	return &Variable{Name: v.Name, typ: t}
}

// BinOp is a binary operation between two nodes.
type BinOp struct {
	Left, Right Node
	Op          lexer.Kind
	typ         Type
}

func NewBinOp(left Node, op lexer.Kind, right Node) *BinOp {
	return &BinOp{Left: left, Op: op, Right: right}
}
func (b *BinOp) ResolvedType() Type { return b.typ }
func (b *BinOp) WithTypedOperands(left, right Node, resultType Type) *BinOp {
	return &BinOp{Left: left, Op: b.Op, Right: right, typ: resultType}
}

// UnOp is a unary operation; the only member is unary minus.
type UnOp struct {
	Op    lexer.Kind
	Right Node
	typ   Type
}

func NewUnOp(op lexer.Kind, right Node) *UnOp { return &UnOp{Op: op, Right: right} }
func (u *UnOp) ResolvedType() Type            { return u.typ }
func (u *UnOp) WithTypedOperand(right Node, resultType Type) *UnOp {
	return &UnOp{Op: u.Op, Right: right, typ: resultType}
}

// FunctionCall invokes a registered formula function by name.
type FunctionCall struct {
	Name string
	Args []Node
	typ  Type
}

func NewFunctionCall(name string, args []Node) *FunctionCall {
	return &FunctionCall{Name: name, Args: args}
}
func (f *FunctionCall) ResolvedType() Type { return f.typ }
func (f *FunctionCall) WithTypedArgs(args []Node, resultType Type) *FunctionCall {
	return &FunctionCall{Name: f.Name, Args: args, typ: resultType}
}

// Array is an array literal. Its element type is the union of its
// elements' resolved types.
type Array struct {
	Elements []Node
	typ      Type
}

func NewArray(elements []Node) *Array { return &Array{Elements: elements} }
func (a *Array) ResolvedType() Type   { return a.typ }
func (a *Array) WithTypedElements(elements []Node, resultType Type) *Array {
	return &Array{Elements: elements, typ: resultType}
}

// Cast is inserted by the typechecker to make an implicit coercion
// explicit; its resolved type is always its target type, Type_.
type Cast struct {
	Inner Node
	Type_ Type
}

func NewCast(inner Node, t Type) *Cast  { return &Cast{Inner: inner, Type_: t} }
func (c *Cast) ResolvedType() Type      { return c.Type_ }
