package attest

import (
	"errors"
	"fmt"
)

var (
	ErrArity             = errors.New("arity mismatch")
	ErrSentenceTooLong   = errors.New("sentence exceeds maximum length")
	ErrTooManyAssertions = errors.New("maximum number of assertions exceeded")
	ErrUnknownAssertion  = errors.New("unknown assertion")
)

// ArityError reports a comparison that could not find both of its operands,
// either in the sentence or in the arguments supplied for it.
type ArityError struct {
	Operator string
	Position int
	// Operand is the operand slot that was missing.
	Operand int
	// Operands is how many operands the sentence has; Args how many
	// arguments were supplied.
	Operands int
	Args     int
}

func (e *ArityError) Error() string {
	if e.Operand >= e.Operands {
		return fmt.Sprintf("%v: operator %q at offset %d needs operand %d, sentence has %d",
			ErrArity, e.Operator, e.Position, e.Operand, e.Operands)
	}
	return fmt.Sprintf("%v: operator %q at offset %d binds argument %d, only %d supplied",
		ErrArity, e.Operator, e.Position, e.Operand, e.Args)
}

func (e *ArityError) Unwrap() error { return ErrArity }
