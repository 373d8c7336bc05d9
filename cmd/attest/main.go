package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chosenoffset/attest/internal/config"
	"github.com/chosenoffset/attest/pkg/attest"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// errFailed marks a command that ran correctly but whose assertions did not
// hold. main exits 1 without printing it again.
var errFailed = errors.New("assertion failed")

var rootCmd = &cobra.Command{
	Use:   "attest",
	Short: "Evaluate assertion sentences against values",
	Long: `attest evaluates short assertion sentences such as

  {x} not equals {y}
  {lo} <= {mid} < {hi}
  {name} ` + "`starts with`" + ` {prefix}

Braced operands bind to arguments by position. Builtin operators are
equals, not equals, greater than, greater than or equal to, less than,
less than or equal to and their symbolic forms. Backquoted operators are
looked up in the operator registry.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = cfg.BuildLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "attest.yaml", "Path to the YAML configuration file")

	rootCmd.AddCommand(evalCmd, tokensCmd, runCmd, serveCmd)
}

// newEngine builds an engine from the loaded configuration.
func newEngine(opts ...attest.Option) (*attest.Engine, error) {
	limits, err := cfg.EngineLimits()
	if err != nil {
		return nil, err
	}
	base := []attest.Option{
		attest.WithLogger(logger),
		attest.WithLimits(limits),
	}
	if cfg.Operators.Standard {
		base = append(base, attest.WithStandardOperators())
	}
	return attest.NewEngine(append(base, opts...)...), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
