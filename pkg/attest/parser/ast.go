package parser

import (
	"bytes"
)

// Expression is a tokenized sentence: its operators and operands, each in
// source order.
type Expression struct {
	Source    string
	Operators []Token
	Operands  []Token
}

// Arity is the number of positional arguments the sentence binds.
func (e *Expression) Arity() int {
	return len(e.Operands)
}

// Tokens returns operators and operands merged back into source order.
func (e *Expression) Tokens() []Token {
	out := make([]Token, 0, len(e.Operators)+len(e.Operands))
	i, j := 0, 0
	for i < len(e.Operators) || j < len(e.Operands) {
		switch {
		case j == len(e.Operands):
			out = append(out, e.Operators[i])
			i++
		case i == len(e.Operators):
			out = append(out, e.Operands[j])
			j++
		case e.Operators[i].Position < e.Operands[j].Position:
			out = append(out, e.Operators[i])
			i++
		default:
			out = append(out, e.Operands[j])
			j++
		}
	}
	return out
}

// String renders the canonical form of the sentence, with single spaces
// between tokens and user tokens re-wrapped around their lexemes.
func (e *Expression) String() string {
	var out bytes.Buffer
	for i, tok := range e.Tokens() {
		if i > 0 {
			out.WriteString(" ")
		}
		switch tok.Type {
		case OPERAND:
			out.WriteString("{" + tok.Lexeme + "}")
		case OPERATOR:
			out.WriteString("`" + tok.Lexeme + "`")
		default:
			out.WriteString(tok.Lexeme)
		}
	}
	return out.String()
}
