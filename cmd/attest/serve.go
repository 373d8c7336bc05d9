package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chosenoffset/attest/internal/config"
	"github.com/chosenoffset/attest/pkg/attest"
)

var (
	servePort     int
	serveFile     string
	serveSimulate bool
	serveWatch    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web dashboard",
	Long: `Serves the dashboard, which streams evaluation events over WebSocket and
accepts sentences to validate or evaluate.

Scenarios from --file are registered as named assertions. With --simulate
they are checked every two seconds against random values so the event
stream has something to show. With --watch the file is reloaded when it
changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Dashboard port (defaults to the configured port)")
	serveCmd.Flags().StringVarP(&serveFile, "file", "f", "", "Scenario file to register as assertions")
	serveCmd.Flags().BoolVar(&serveSimulate, "simulate", false, "Periodically check the registered assertions")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload --file when it changes")
}

// scenarioSet is the scenario list currently registered with the engine.
type scenarioSet struct {
	mu        sync.RWMutex
	scenarios []config.Scenario
}

func (s *scenarioSet) Get() []config.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scenarios
}

// Apply registers next with the engine and removes assertions for
// scenarios that are no longer listed. On a compile error the engine and
// set keep the previous scenarios.
func (s *scenarioSet) Apply(engine *attest.Engine, next []config.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range next {
		if _, err := engine.Compile(sc.Sentence); err != nil {
			return fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
	}

	keep := make(map[string]bool, len(next))
	for _, sc := range next {
		if err := engine.AddAssertion(sc.Name, sc.Sentence); err != nil {
			return err
		}
		keep[sc.Name] = true
	}
	for _, sc := range s.scenarios {
		if !keep[sc.Name] {
			engine.RemoveAssertion(sc.Name)
		}
	}
	s.scenarios = next
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}

	set := &scenarioSet{}
	if serveFile != "" {
		scenarios, err := config.LoadScenarios(serveFile)
		if err != nil {
			return err
		}
		if err := set.Apply(engine, scenarios); err != nil {
			return err
		}
	}
	if serveWatch && serveFile == "" {
		return fmt.Errorf("--watch requires --file")
	}

	port := cfg.Dashboard.Port
	if servePort != 0 {
		port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.StartDashboard(port)
	defer func() {
		if err := engine.StopDashboard(); err != nil {
			logger.Warn("dashboard shutdown", zap.Error(err))
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dashboard available at: http://localhost:%d\n", port)
	fmt.Fprintln(out, "API endpoints:")
	fmt.Fprintln(out, "  - GET  /api/events      - Recent evaluation events")
	fmt.Fprintln(out, "  - GET  /api/metrics     - Evaluation and HTTP statistics")
	fmt.Fprintln(out, "  - GET  /api/assertions  - Registered assertions")
	fmt.Fprintln(out, "  - POST /api/validate    - Tokenize a sentence")
	fmt.Fprintln(out, "  - POST /api/evaluate    - Evaluate a sentence")

	if serveWatch {
		go func() {
			err := config.WatchScenarios(ctx, serveFile, logger, func(next []config.Scenario) {
				if err := set.Apply(engine, next); err != nil {
					logger.Warn("scenario reload rejected", zap.Error(err))
				}
			})
			if err != nil {
				logger.Error("scenario watcher stopped", zap.Error(err))
			}
		}()
	}

	if serveSimulate && serveFile != "" {
		go simulate(ctx, engine, set)
	}

	<-ctx.Done()
	return nil
}

// simulate checks each scenario with its own arguments perturbed, so both
// verdicts show up on the dashboard.
func simulate(ctx context.Context, engine *attest.Engine, set *scenarioSet) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, s := range set.Get() {
				if _, err := engine.Check(ctx, s.Name, perturb(s.Args)...); err != nil {
					logger.Debug("simulated check failed", zap.String("assertion", s.Name), zap.Error(err))
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func perturb(args []interface{}) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case int:
			out[i] = v + rand.Intn(3) - 1
		case float64:
			out[i] = v + rand.Float64() - 0.5
		default:
			out[i] = a
		}
	}
	return out
}
