package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chosenoffset/attest/internal/config"
	"github.com/chosenoffset/attest/pkg/attest"
	"github.com/chosenoffset/attest/pkg/attest/parser"
)

var traceSteps bool

var evalCmd = &cobra.Command{
	Use:   "eval [sentence] [args...]",
	Short: "Evaluate one sentence against the given arguments",
	Long: `Evaluates a sentence. Each argument is read as a YAML scalar, so 41 is an
integer, 4.5 a float, true a boolean and anything else a string.

Example:
  attest eval '{x} not equals {y}' 41 42`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEval,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens [sentence]",
	Short: "Print the tokens of a sentence",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokens,
}

func init() {
	evalCmd.Flags().BoolVarP(&traceSteps, "trace", "t", false, "Print every comparison")
}

func runEval(cmd *cobra.Command, args []string) error {
	var opts []attest.Option
	if traceSteps {
		opts = append(opts, attest.WithConsoleTrace(cmd.OutOrStdout()))
	}
	engine, err := newEngine(opts...)
	if err != nil {
		return err
	}

	values := make([]any, len(args)-1)
	for i, a := range args[1:] {
		values[i] = config.DecodeArg(a)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := engine.Attest(ctx, args[0], values...)
	if err != nil {
		return err
	}

	if res.Passed {
		fmt.Fprintln(cmd.OutOrStdout(), "PASS")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "FAIL")
	for _, step := range res.Steps {
		if !step.Outcome {
			fmt.Fprintf(cmd.OutOrStdout(), "  {%s} %s {%s}: %v vs %v\n",
				step.Left, step.Operator, step.Right, step.LeftValue, step.RightValue)
		}
	}
	return errFailed
}

func runTokens(cmd *cobra.Command, args []string) error {
	expr, err := parser.Parse(args[0], parser.WithMaxTokens(cfg.Limits.MaxTokens))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tTYPE\tINDEX\tLEXEME")
	for _, tok := range expr.Tokens() {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", tok.Position, tok.Type, tok.Index, tok.Lexeme)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%d arguments)\n", expr, expr.Arity())
	return nil
}
