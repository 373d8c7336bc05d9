package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chosenoffset/attest/internal/config"
)

var (
	scenarioPath string
	parallelism  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate every scenario in a YAML file",
	Long: `Runs the scenarios of a file and compares each verdict with its expectation.

Example file:
  scenarios:
    - name: distinct
      sentence: "{x} not equals {y}"
      args: [41, 42]
    - name: equal
      sentence: "{x} equals {y}"
      args: [5, 6]
      expect: false`,
	RunE: runScenarios,
}

func init() {
	runCmd.Flags().StringVarP(&scenarioPath, "file", "f", "", "Scenario file")
	runCmd.Flags().IntVarP(&parallelism, "parallel", "p", 4, "Scenarios evaluated concurrently")
	_ = runCmd.MarkFlagRequired("file")
}

type scenarioOutcome struct {
	passed bool
	err    error
}

func runScenarios(cmd *cobra.Command, args []string) error {
	scenarios, err := config.LoadScenarios(scenarioPath)
	if err != nil {
		return err
	}
	engine, err := newEngine()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Evaluation errors are scenario outcomes, not reasons to stop the group.
	outcomes := make([]scenarioOutcome, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, s := range scenarios {
		g.Go(func() error {
			res, err := engine.Attest(gctx, s.Sentence, s.Args...)
			if err != nil {
				outcomes[i] = scenarioOutcome{err: err}
				return nil
			}
			outcomes[i] = scenarioOutcome{passed: res.Passed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failures := 0
	for i, s := range scenarios {
		o := outcomes[i]
		switch {
		case o.err != nil:
			failures++
			fmt.Fprintf(out, "ERROR %s: %v\n", s.Name, o.err)
		case o.passed != s.Expected():
			failures++
			fmt.Fprintf(out, "FAIL  %s: %q was %t, expected %t\n", s.Name, s.Sentence, o.passed, s.Expected())
		default:
			fmt.Fprintf(out, "ok    %s\n", s.Name)
		}
	}

	logger.Debug("scenarios finished",
		zap.String("file", scenarioPath),
		zap.Int("total", len(scenarios)),
		zap.Int("failures", failures))

	fmt.Fprintf(out, "\n%d scenarios, %d failed\n", len(scenarios), failures)
	if failures > 0 {
		return errFailed
	}
	return nil
}
