package parser

import (
	"errors"
	"fmt"
)

var (
	ErrParseFailure  = errors.New("parse failure")
	ErrUnterminated  = errors.New("unterminated delimiter")
	ErrTooManyTokens = errors.New("too many tokens")
)

// ParseError reports where in a sentence parsing stopped.
type ParseError struct {
	Err       error
	Offset    int
	Lexeme    string
	Remaining string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v at offset %d [%s]", e.Err, e.Offset, e.Lexeme)
}

func (e *ParseError) Unwrap() []error {
	if errors.Is(e.Err, ErrParseFailure) {
		return []error{e.Err}
	}
	return []error{ErrParseFailure, e.Err}
}
