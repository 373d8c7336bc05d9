package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chosenoffset/attest/pkg/attest/fixedstr"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input       string
		expectType  TokenType
		expectWidth int
		expectLex   string
	}{
		{"equals {y}", EQ, 6, "equals"},
		{"not equals {y}", NOT_EQ, 10, "not equals"},
		{"greater than or equal to {y}", GTE, 24, "greater than or equal to"},
		{"greater than {y}", GT, 12, "greater than"},
		{"greater than{y}", GT, 12, "greater than"},
		{"less than or equal to {y}", LTE, 21, "less than or equal to"},
		{"less than {y}", LT, 9, "less than"},
		{"== {y}", EQ, 2, "=="},
		{"!= {y}", NOT_EQ, 2, "!="},
		{">= {y}", GTE, 2, ">="},
		{"> {y}", GT, 1, ">"},
		{"<= {y}", LTE, 2, "<="},
		{"< {y}", LT, 1, "<"},
		{"{x} equals", OPERAND, 3, "x"},
		{"{ long name } equals", OPERAND, 13, "long name"},
		{"{}", OPERAND, 2, ""},
		{"`divides` {y}", OPERATOR, 9, "divides"},
		{"", EOF, 0, ""},
		{"World!", ILLEGAL, 0, ""},
		{"}", ILLEGAL, 0, ""},
	}

	for _, tt := range tests {
		tok, err := Tokenize(fixedstr.New(tt.input))
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expectType, tok.Type, "input %q", tt.input)
		assert.Equal(t, tt.expectWidth, tok.Range.Len(), "input %q", tt.input)
		assert.Equal(t, 0, tok.Range.Lower, "input %q", tt.input)
		assert.Equal(t, tt.expectLex, tok.Lexeme, "input %q", tt.input)
	}
}

func TestTokenizeKeywordRangeExcludesTrailingSpace(t *testing.T) {
	input := fixedstr.New("greater than {y}")
	tok, err := Tokenize(input)
	require.NoError(t, err)
	assert.Equal(t, GT, tok.Type)
	assert.Equal(t, len("greater than"), tok.Range.Len())
	next, err := input.At(tok.Range.Upper)
	require.NoError(t, err)
	assert.Equal(t, byte(' '), next, "the separating space is left for the caller")
}

func TestTokenizeGreaterEqualIsSingleToken(t *testing.T) {
	tok, err := Tokenize("greater than or equal to")
	require.NoError(t, err)
	assert.Equal(t, GTE, tok.Type)
	assert.Equal(t, 24, tok.Range.Len())

	tok, err = Tokenize("less than or equal to")
	require.NoError(t, err)
	assert.Equal(t, LTE, tok.Type)
	assert.Equal(t, 21, tok.Range.Len())
}

func TestTokenizeThenRemainder(t *testing.T) {
	input := fixedstr.New("== World!")

	tok, err := Tokenize(input)
	require.NoError(t, err)
	assert.Equal(t, EQ, tok.Type)
	assert.Equal(t, fixedstr.Span(0, 2), tok.Range)

	rest := ConsumeWhitespace(input.MustSubstr(fixedstr.From(tok.Range.Upper)))
	assert.Equal(t, fixedstr.String("World!"), rest)

	next, err := Tokenize(rest)
	require.NoError(t, err)
	assert.Equal(t, ILLEGAL, next.Type)
	assert.True(t, next.Range.Empty())
}

func TestTokenizeUnterminated(t *testing.T) {
	for _, input := range []string{"{x", "{x equals {y", "`op", "{"} {
		_, err := Tokenize(fixedstr.New(input))
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, ErrUnterminated)
		assert.ErrorIs(t, err, ErrParseFailure)
	}
}

func TestConsumeWhitespace(t *testing.T) {
	assert.Equal(t, fixedstr.String("x"), ConsumeWhitespace(" \t\r\n x"))
	assert.Equal(t, fixedstr.String(""), ConsumeWhitespace("    "))
	assert.Equal(t, fixedstr.String(""), ConsumeWhitespace(""))
	assert.Equal(t, fixedstr.String("a b"), ConsumeWhitespace("a b"))
}

func TestMatchKeyword(t *testing.T) {
	kw, ok := MatchKeyword("greater than or equal to 3")
	require.True(t, ok)
	assert.Equal(t, GTE, kw.Type)

	_, ok = MatchKeyword("{x}")
	assert.False(t, ok)
}

func TestLexerNextToken(t *testing.T) {
	l := NewLexer("  {x}   not equals {y} ")

	expected := []struct {
		typ      TokenType
		position int
		literal  string
	}{
		{OPERAND, 2, "{x}"},
		{NOT_EQ, 8, "not equals"},
		{OPERAND, 19, "{y}"},
		{EOF, 23, ""},
	}

	for i, want := range expected {
		tok, err := l.NextToken()
		require.NoError(t, err)
		assert.Equal(t, want.typ, tok.Type, "token %d", i)
		assert.Equal(t, want.position, tok.Position, "token %d", i)
		assert.Equal(t, want.literal, tok.Literal, "token %d", i)
	}

	// EOF is sticky.
	tok, err := l.NextToken()
	require.NoError(t, err)
	assert.Equal(t, EOF, tok.Type)
}

func TestLexerUnterminatedOffset(t *testing.T) {
	l := NewLexer("{x} equals {y")
	for i := 0; i < 2; i++ {
		_, err := l.NextToken()
		require.NoError(t, err)
	}
	_, err := l.NextToken()
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 11, pe.Offset)
	assert.Equal(t, "{y", pe.Remaining)
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "!=", NOT_EQ.String())
	assert.Equal(t, "OPERAND", OPERAND.String())
	assert.Equal(t, "UNKNOWN", TokenType(99).String())
	assert.True(t, GTE.IsBuiltin())
	assert.False(t, OPERATOR.IsBuiltin())
}
