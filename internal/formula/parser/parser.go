// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package parser implements a Pratt-style expression parser that turns
// a formula token stream into an AST, grounded on
// original_source/landtable/formula/parse.py's Parser class.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/iamawatermelo/landtable/internal/formula/ast"
	"github.com/iamawatermelo/landtable/internal/formula/lexer"
)

// Error is a parse-time error, reported as a 400-class error by
// callers (see internal/apierror).
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func errf(format string, args ...any) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

var precedences = map[lexer.Kind]int{
	lexer.PLUS:      10,
	lexer.AMPERSAND:  10,
	lexer.MINUS:      10,
	lexer.MUL:        20,
	lexer.DIV:        20,
	lexer.EQ:         7,
	lexer.NE:         7,
	lexer.LT:         7,
	lexer.GT:         7,
	lexer.LE:         7,
	lexer.GE:         7,
}

type parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse turns a token stream into an AST. An empty token stream returns
// (nil, nil) -- the caller is expected to report "empty formula" in
// that case, per spec.md §4.D.
func Parse(tokens []lexer.Token) (ast.Node, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	p := &parser{tokens: tokens}
	node, err := p.expression(0)
	if err != nil {
		return nil, err
	}

	if tok := p.current(); tok.Kind != lexer.EOF {
		return nil, errf("parser didn't consume all tokens, found %s", tok.Kind)
	}

	return node, nil
}

// ParseString lexes and parses s in one step.
func ParseString(s string) (ast.Node, error) {
	tokens, err := lexer.Lex(s)
	if err != nil {
		return nil, errors.Wrap(err, "lex error")
	}
	return Parse(tokens)
}

func (p *parser) current() lexer.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return lexer.Token{Kind: lexer.EOF}
}

func (p *parser) peekKind() lexer.Kind {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1].Kind
	}
	return lexer.EOF
}

func (p *parser) eat(kind lexer.Kind) error {
	if p.current().Kind == kind {
		p.pos++
		return nil
	}
	return errf("unexpected token %s, expected %s", p.current().Kind, kind)
}

func (p *parser) expression(minPrecedence int) (ast.Node, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.current()
		prec, ok := precedences[tok.Kind]
		if !ok || prec <= minPrecedence {
			break
		}

		op := tok.Kind
		if err := p.eat(op); err != nil {
			return nil, err
		}

		right, err := p.expression(prec)
		if err != nil {
			return nil, err
		}

		left = ast.NewBinOp(left, op, right)
	}

	return left, nil
}

func (p *parser) primary() (ast.Node, error) {
	tok := p.current()

	switch tok.Kind {
	case lexer.NUMBER:
		if err := p.eat(lexer.NUMBER); err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, errf("invalid numeric literal %q", tok.Value)
		}
		return ast.NewNumber(f), nil

	case lexer.ID:
		if p.peekKind() == lexer.LPAREN {
			name := tok.Value
			if err := p.eat(lexer.ID); err != nil {
				return nil, err
			}
			if err := p.eat(lexer.LPAREN); err != nil {
				return nil, err
			}

			var args []ast.Node
			for p.current().Kind != lexer.RPAREN {
				arg, err := p.expression(0)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.current().Kind == lexer.COMMA {
					if err := p.eat(lexer.COMMA); err != nil {
						return nil, err
					}
				}
			}
			if err := p.eat(lexer.RPAREN); err != nil {
				return nil, err
			}
			return ast.NewFunctionCall(name, args), nil
		}

		if err := p.eat(lexer.ID); err != nil {
			return nil, err
		}
		return ast.NewVariable(tok.Value), nil

	case lexer.STRING:
		if err := p.eat(lexer.STRING); err != nil {
			return nil, err
		}
		unescape := strings.NewReplacer(`\\`, `\`, `\"`, `"`)
		return ast.NewString(unescape.Replace(tok.Value[1 : len(tok.Value)-1])), nil

	case lexer.LPAREN:
		if err := p.eat(lexer.LPAREN); err != nil {
			return nil, err
		}
		node, err := p.expression(0)
		if err != nil {
			return nil, err
		}
		if err := p.eat(lexer.RPAREN); err != nil {
			return nil, err
		}
		return node, nil

	case lexer.MINUS:
		if err := p.eat(lexer.MINUS); err != nil {
			return nil, err
		}
		right, err := p.primary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnOp(lexer.MINUS, right), nil

	case lexer.LBRACK:
		if err := p.eat(lexer.LBRACK); err != nil {
			return nil, err
		}
		var elements []ast.Node
		for p.current().Kind != lexer.RBRACK {
			elem, err := p.expression(0)
			if err != nil {
				return nil, err
			}
			elements = append(elements, elem)
			if p.current().Kind == lexer.COMMA {
				if err := p.eat(lexer.COMMA); err != nil {
					return nil, err
				}
			}
		}
		if err := p.eat(lexer.RBRACK); err != nil {
			return nil, err
		}
		return ast.NewArray(elements), nil

	case lexer.VARIABLE_NAME:
		if err := p.eat(lexer.VARIABLE_NAME); err != nil {
			return nil, err
		}
		return ast.NewVariable(tok.Value), nil

	default:
		return nil, errf("unexpected token %s", tok.Kind)
	}
}
