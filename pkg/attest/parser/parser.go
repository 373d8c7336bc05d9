package parser

import (
	"github.com/chosenoffset/attest/pkg/attest/fixedstr"
)

type Parser struct {
	l *Lexer

	// maxTokens bounds the number of operator and operand tokens; zero means
	// no bound.
	maxTokens int
}

type Option func(*Parser)

// WithMaxTokens caps the number of tokens a sentence may contain.
func WithMaxTokens(n int) Option {
	return func(p *Parser) {
		p.maxTokens = n
	}
}

func New(l *Lexer, opts ...Option) *Parser {
	p := &Parser{l: l}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse tokenizes sentence and splits it into operators and operands.
func Parse(sentence string, opts ...Option) (*Expression, error) {
	return New(NewLexer(sentence), opts...).ParseExpression()
}

// ParseExpression drains the lexer. Operands are numbered left to right as
// they are seen; operators take the current operand count as their index
// without consuming a slot.
func (p *Parser) ParseExpression() (*Expression, error) {
	expr := &Expression{Source: p.l.input.String()}
	nextOperand := 0

	for {
		tok, err := p.l.NextToken()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case EOF:
			return expr, nil
		case ILLEGAL:
			return nil, p.illegalError()
		case OPERAND:
			tok.Index = nextOperand
			nextOperand++
			expr.Operands = append(expr.Operands, tok)
		default:
			tok.Index = nextOperand
			expr.Operators = append(expr.Operators, tok)
		}

		if p.maxTokens > 0 && len(expr.Operands)+len(expr.Operators) > p.maxTokens {
			return nil, &ParseError{
				Err:       ErrTooManyTokens,
				Offset:    tok.Position,
				Lexeme:    tok.Literal,
				Remaining: p.l.Remaining(),
			}
		}
	}
}

func (p *Parser) illegalError() error {
	rest := fixedstr.New(p.l.Remaining())
	lexeme := rest
	if end := rest.FindFirst(whitespace...); end != -1 {
		lexeme = rest.MustSubstr(fixedstr.Span(0, end))
	}
	return &ParseError{
		Err:       ErrParseFailure,
		Offset:    p.l.Position(),
		Lexeme:    lexeme.String(),
		Remaining: rest.String(),
	}
}
