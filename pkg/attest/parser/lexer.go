package parser

import (
	"errors"

	"github.com/chosenoffset/attest/pkg/attest/fixedstr"
)

type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF

	// Builtin comparisons
	EQ     // equals, ==
	NOT_EQ // not equals, !=
	GTE    // greater than or equal to, >=
	GT     // greater than, >
	LTE    // less than or equal to, <=
	LT     // less than, <

	// User tokens
	OPERATOR // `name`
	OPERAND  // {name}
)

type Token struct {
	Type TokenType
	// Range is relative to the text handed to Tokenize.
	Range fixedstr.Range
	// Position is the absolute offset in the sentence.
	Position int
	Literal  string
	Lexeme   string
	// Index is the operand slot: the position of an OPERAND among operands,
	// or for operators the number of operands that precede it.
	Index int
}

// IsBuiltin reports whether t is one of the six comparison tokens.
func (t Token) IsBuiltin() bool { return t.Type.IsBuiltin() }

func (tt TokenType) IsBuiltin() bool {
	return tt >= EQ && tt <= LT
}

// Keyword is one spelling of a builtin comparison.
type Keyword struct {
	Text fixedstr.String
	Type TokenType
}

// Keywords lists the builtin spellings in match order. Longer spellings that
// share a prefix with a shorter one come first.
var Keywords = []Keyword{
	{"equals", EQ},
	{"not equals", NOT_EQ},
	{"greater than or equal to", GTE},
	{"greater than", GT},
	{"less than or equal to", LTE},
	{"less than", LT},
	{"==", EQ},
	{"!=", NOT_EQ},
	{">=", GTE},
	{">", GT},
	{"<=", LTE},
	{"<", LT},
}

const (
	operandOpen   = '{'
	operandClose  = '}'
	operatorQuote = '`'
)

var whitespace = []byte{' ', '\t', '\r', '\n'}

// MatchKeyword returns the builtin keyword that s starts with, if any.
func MatchKeyword(s fixedstr.String) (Keyword, bool) {
	for _, kw := range Keywords {
		if s.StartsWith(kw.Text) {
			return kw, true
		}
	}
	return Keyword{}, false
}

// Tokenize classifies the single token that starts at offset 0 of s. It does
// not skip leading whitespace. An unterminated operand or operator is
// reported as an error; anything else unrecognised comes back as a
// zero-width ILLEGAL token.
func Tokenize(s fixedstr.String) (Token, error) {
	if s.Len() == 0 {
		return Token{Type: EOF, Range: fixedstr.Span(0, 0)}, nil
	}

	if kw, ok := MatchKeyword(s); ok {
		return Token{
			Type:    kw.Type,
			Range:   fixedstr.Span(0, kw.Text.Len()),
			Literal: kw.Text.String(),
			Lexeme:  kw.Text.String(),
		}, nil
	}

	switch s[0] {
	case operandOpen:
		return readDelimited(s, OPERAND, operandClose)
	case operatorQuote:
		return readDelimited(s, OPERATOR, operatorQuote)
	}

	return Token{Type: ILLEGAL, Range: fixedstr.Span(0, 0)}, nil
}

func readDelimited(s fixedstr.String, tt TokenType, closer byte) (Token, error) {
	rest := s.MustSubstr(fixedstr.From(1))
	end := rest.FindFirst(closer)
	if end == -1 {
		return Token{}, &ParseError{
			Err:       ErrUnterminated,
			Lexeme:    s.String(),
			Remaining: s.String(),
		}
	}
	span := fixedstr.Span(0, end+2)
	lit := s.MustSubstr(span)
	return Token{
		Type:    tt,
		Range:   span,
		Literal: lit.String(),
		Lexeme:  unwrap(lit).String(),
	}, nil
}

// unwrap strips the delimiters of a user token and the whitespace inside them.
func unwrap(lit fixedstr.String) fixedstr.String {
	inner := lit.MustSubstr(fixedstr.Span(1, lit.Len()-1))
	start := inner.FindFirstNot(whitespace...)
	if start == -1 {
		return ""
	}
	end := inner.RFindFirstNot(whitespace...)
	return inner.MustSubstr(fixedstr.Span(start, end+1))
}

// ConsumeWhitespace drops the leading run of whitespace from s.
func ConsumeWhitespace(s fixedstr.String) fixedstr.String {
	idx := s.FindFirstNot(whitespace...)
	if idx == -1 {
		return ""
	}
	return s.MustSubstr(fixedstr.From(idx))
}

// Lexer hands out the tokens of a sentence one at a time.
type Lexer struct {
	input    fixedstr.String
	position int // absolute offset of the unread text
	rest     fixedstr.String
}

func NewLexer(input string) *Lexer {
	s := fixedstr.New(input)
	return &Lexer{
		input: s,
		rest:  s,
	}
}

// NextToken skips whitespace, classifies the next token and advances past it.
// ILLEGAL and EOF tokens do not advance the lexer.
func (l *Lexer) NextToken() (Token, error) {
	trimmed := ConsumeWhitespace(l.rest)
	l.position += l.rest.Len() - trimmed.Len()
	l.rest = trimmed

	tok, err := Tokenize(l.rest)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Offset = l.position
		}
		return Token{}, err
	}
	tok.Position = l.position

	if tok.Type != ILLEGAL && tok.Type != EOF {
		l.rest = l.rest.MustSubstr(fixedstr.From(tok.Range.Upper))
		l.position += tok.Range.Len()
	}
	return tok, nil
}

// Remaining returns the text that has not been consumed yet.
func (l *Lexer) Remaining() string {
	return l.rest.String()
}

func (l *Lexer) Position() int {
	return l.position
}

func (t TokenType) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case EQ:
		return "=="
	case NOT_EQ:
		return "!="
	case GTE:
		return ">="
	case GT:
		return ">"
	case LTE:
		return "<="
	case LT:
		return "<"
	case OPERATOR:
		return "OPERATOR"
	case OPERAND:
		return "OPERAND"
	default:
		return "UNKNOWN"
	}
}
