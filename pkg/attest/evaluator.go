package attest

import (
	"context"
	"fmt"
	"time"

	"github.com/chosenoffset/attest/pkg/attest/operators"
	"github.com/chosenoffset/attest/pkg/attest/parser"
	"github.com/chosenoffset/attest/pkg/attest/trace"
)

// Step is one comparison performed during an evaluation.
type Step struct {
	Left       string `json:"left"`
	Operator   string `json:"operator"`
	Right      string `json:"right"`
	LeftValue  any    `json:"left_value"`
	RightValue any    `json:"right_value"`
	Outcome    bool   `json:"outcome"`
}

// Result is the outcome of evaluating a sentence.
type Result struct {
	Sentence string        `json:"sentence"`
	Passed   bool          `json:"passed"`
	Steps    []Step        `json:"steps"`
	Duration time.Duration `json:"duration"`
}

type Evaluator struct {
	operators *operators.Registry
	tracer    *trace.Registry
}

// NewEvaluator builds an evaluator. Either argument may be nil: without a
// registry every user operator is unsupported, without a tracer no events
// are emitted.
func NewEvaluator(ops *operators.Registry, tracer *trace.Registry) *Evaluator {
	if ops == nil {
		ops = operators.NewRegistry()
	}
	return &Evaluator{
		operators: ops,
		tracer:    tracer,
	}
}

// Evaluate runs every operator of expr in source order against args.
//
// Operators chain over the operand list: the first compares operands 0 and
// 1, the next operands 1 and 2, and so on. Each operand reads the argument
// at its own index. The result passes when every comparison holds; all
// comparisons run even after one fails.
func (e *Evaluator) Evaluate(ctx context.Context, expr *parser.Expression, args ...any) (*Result, error) {
	return e.evaluate(ctx, "", expr, args)
}

func (e *Evaluator) evaluate(ctx context.Context, name string, expr *parser.Expression, args []any) (*Result, error) {
	start := time.Now()
	result := &Result{
		Sentence: expr.Source,
		Passed:   true,
		Steps:    make([]Step, 0, len(expr.Operators)),
	}

	cursor := 0
	for _, op := range expr.Operators {
		// Check context cancellation between comparisons
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("evaluation cancelled: %w", ctx.Err())
		default:
		}

		step, err := e.apply(op, cursor, expr, args)
		if err != nil {
			return nil, err
		}
		cursor++

		result.Steps = append(result.Steps, step)
		result.Passed = result.Passed && step.Outcome

		e.emit(trace.Event{
			Type:      trace.ComparisonEvent,
			Assertion: name,
			Sentence:  expr.Source,
			Left:      step.Left,
			Operator:  step.Operator,
			Right:     step.Right,
			Outcome:   step.Outcome,
		})
	}

	result.Duration = time.Since(start)
	e.emit(trace.Event{
		Type:      trace.VerdictEvent,
		Assertion: name,
		Sentence:  expr.Source,
		Outcome:   result.Passed,
	})
	return result, nil
}

func (e *Evaluator) apply(op parser.Token, cursor int, expr *parser.Expression, args []any) (Step, error) {
	if cursor+1 >= len(expr.Operands) {
		return Step{}, &ArityError{
			Operator: op.Lexeme,
			Position: op.Position,
			Operand:  cursor + 1,
			Operands: len(expr.Operands),
			Args:     len(args),
		}
	}
	left, right := expr.Operands[cursor], expr.Operands[cursor+1]

	lv, err := bind(op, left, expr, args)
	if err != nil {
		return Step{}, err
	}
	rv, err := bind(op, right, expr, args)
	if err != nil {
		return Step{}, err
	}

	var outcome bool
	if op.IsBuiltin() {
		outcome, err = operators.Compare(op.Type, lv, rv)
	} else {
		outcome, err = e.operators.Apply(op.Lexeme, lv, rv)
	}
	if err != nil {
		return Step{}, fmt.Errorf("evaluating {%s} %s {%s}: %w", left.Lexeme, op.Lexeme, right.Lexeme, err)
	}

	return Step{
		Left:       left.Lexeme,
		Operator:   op.Lexeme,
		Right:      right.Lexeme,
		LeftValue:  lv,
		RightValue: rv,
		Outcome:    outcome,
	}, nil
}

func bind(op, operand parser.Token, expr *parser.Expression, args []any) (any, error) {
	if operand.Index < 0 || operand.Index >= len(args) {
		return nil, &ArityError{
			Operator: op.Lexeme,
			Position: op.Position,
			Operand:  operand.Index,
			Operands: len(expr.Operands),
			Args:     len(args),
		}
	}
	return args[operand.Index], nil
}

func (e *Evaluator) emit(ev trace.Event) {
	if e.tracer == nil {
		return
	}
	// Trace output is diagnostic only; handler failures never change a verdict.
	_ = e.tracer.Emit(ev)
}
