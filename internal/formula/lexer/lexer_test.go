// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamawatermelo/landtable/internal/formula/lexer"
)

func kinds(tokens []lexer.Token) []lexer.Kind {
	out := make([]lexer.Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestLexSimpleExpression(t *testing.T) {
	tokens, err := lexer.Lex("1+2*3")
	require.NoError(t, err)
	assert.Equal(t, []lexer.Kind{
		lexer.NUMBER, lexer.PLUS, lexer.NUMBER, lexer.MUL, lexer.NUMBER,
	}, kinds(tokens))
	assert.Equal(t, "1", tokens[0].Value)
	assert.Equal(t, "2", tokens[2].Value)
	assert.Equal(t, "3", tokens[4].Value)
}

func TestLexString(t *testing.T) {
	tokens, err := lexer.Lex(`"hello \"world\""`)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, lexer.STRING, tokens[0].Kind)
}

func TestLexVariableName(t *testing.T) {
	tokens, err := lexer.Lex(`{my field} + 1`)
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, lexer.VARIABLE_NAME, tokens[0].Kind)
	assert.Equal(t, "my field", tokens[0].Value)
}

func TestLexVariableNameEscape(t *testing.T) {
	tokens, err := lexer.Lex(`{a\}b}`)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "a}b", tokens[0].Value)
}

func TestLexOperators(t *testing.T) {
	tokens, err := lexer.Lex("<= >= != < > = & ( ) { } [ ] , .")
	require.NoError(t, err)
	assert.Equal(t, []lexer.Kind{
		lexer.LE, lexer.GE, lexer.NE, lexer.LT, lexer.GT, lexer.EQ,
		lexer.AMPERSAND, lexer.LPAREN, lexer.RPAREN, lexer.VARIABLE_NAME,
		lexer.LBRACK, lexer.RBRACK, lexer.COMMA, lexer.DOT,
	}, kinds(tokens))
}

func TestLexRejectsUnmatchedCharacter(t *testing.T) {
	_, err := lexer.Lex("1 $ 2")
	require.Error(t, err)
	var lexErr *lexer.Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 2, lexErr.Pos)
}

func TestLexNumberNotFollowedByWordChar(t *testing.T) {
	_, err := lexer.Lex("1foo")
	assert.Error(t, err)
}

func TestLexDecimal(t *testing.T) {
	tokens, err := lexer.Lex("3.14")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "3.14", tokens[0].Value)
}
