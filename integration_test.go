package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chosenoffset/attest/internal/config"
	"github.com/chosenoffset/attest/pkg/attest"
)

// TestIntegrationSuite runs the engine end to end
func TestIntegrationSuite(t *testing.T) {
	t.Run("AssertionLifecycle", testAssertionLifecycle)
	t.Run("SentenceEvaluation", testSentenceEvaluation)
	t.Run("StatisticsCollection", testStatisticsCollection)
	t.Run("DashboardAPI", testDashboardAPI)
	t.Run("DashboardStream", testDashboardStream)
	t.Run("ConcurrentOperations", testConcurrentOperations)
	t.Run("ErrorHandling", testErrorHandling)
	t.Run("PerformanceUnderLoad", testPerformanceUnderLoad)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func waitForServer(t *testing.T, baseURL string) {
	t.Helper()
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/api/metrics")
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Dashboard at %s did not come up", baseURL)
}

// testAssertionLifecycle adds, checks, replaces and removes assertions
func testAssertionLifecycle(t *testing.T) {
	engine := attest.NewEngine()
	ctx := context.Background()

	if err := engine.AddAssertion("positive", "{x} > {zero}"); err != nil {
		t.Fatalf("Failed to add assertion: %v", err)
	}

	res, err := engine.Check(ctx, "positive", 3, 0)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.Passed {
		t.Error("Expected 3 > 0 to pass")
	}

	if err := engine.AddAssertion("positive", "{x} >= {zero}"); err != nil {
		t.Fatalf("Failed to replace assertion: %v", err)
	}
	res, err = engine.Check(ctx, "positive", 0, 0)
	if err != nil || !res.Passed {
		t.Errorf("Expected replaced assertion to pass, got %v, %v", res, err)
	}

	if !engine.RemoveAssertion("positive") {
		t.Error("Expected assertion to be removed")
	}
	if _, err := engine.Check(ctx, "positive", 1, 0); err == nil {
		t.Error("Expected error checking a removed assertion")
	}
}

// testSentenceEvaluation covers the builtin vocabulary
func testSentenceEvaluation(t *testing.T) {
	engine := attest.NewEngine()

	testCases := []struct {
		sentence string
		args     []any
		expected bool
	}{
		{"{x} not equals {y}", []any{41, 42}, true},
		{"{x} equals {y}", []any{5, 5}, true},
		{"{x} equals {y}", []any{5, 6}, false},
		{"{x} greater than {y}", []any{2, 1}, true},
		{"{x} greater than or equal to {y}", []any{1, 2}, false},
		{"{x} less than {y}", []any{1, 2}, true},
		{"{x} less than or equal to {y}", []any{2, 2}, true},
		{"{x}==   {y}", []any{"a", "a"}, true},
		{"\t{x}\n!=\r\n{y}", []any{"a", "b"}, true},
		{"{a} < {b} < {c}", []any{1, 3, 2}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.sentence, func(t *testing.T) {
			res, err := engine.Attest(context.Background(), tc.sentence, tc.args...)
			if err != nil {
				t.Fatalf("Attest failed: %v", err)
			}
			if res.Passed != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, res.Passed)
			}
		})
	}
}

// testStatisticsCollection verifies the evaluation counters
func testStatisticsCollection(t *testing.T) {
	engine := attest.NewEngine()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := engine.Attest(ctx, "{x} < {y}", i, 5); err != nil {
			t.Fatalf("Attest failed: %v", err)
		}
	}
	_, _ = engine.Attest(ctx, "{x} ~ {y}", 1, 2)

	stats := engine.Stats()
	if stats.Evaluations != 11 {
		t.Errorf("Expected 11 evaluations, got %d", stats.Evaluations)
	}
	if stats.Passed != 5 || stats.Failed != 5 {
		t.Errorf("Expected 5 passed and 5 failed, got %d and %d", stats.Passed, stats.Failed)
	}
	if stats.ParseFailures != 1 {
		t.Errorf("Expected 1 parse failure, got %d", stats.ParseFailures)
	}
	if stats.Comparisons != 10 {
		t.Errorf("Expected 10 comparisons, got %d", stats.Comparisons)
	}
}

// testDashboardAPI exercises every endpoint of a running dashboard
func testDashboardAPI(t *testing.T) {
	engine := attest.NewEngine()
	if err := engine.AddAssertion("ordered", "{lo} <= {hi}"); err != nil {
		t.Fatal(err)
	}

	port := freePort(t)
	engine.StartDashboard(port)
	defer engine.StopDashboard()

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, baseURL)

	testCases := []struct {
		name           string
		endpoint       string
		method         string
		body           string
		expectedStatus int
	}{
		{"Dashboard root", "/", http.MethodGet, "", http.StatusOK},
		{"Metrics API", "/api/metrics", http.MethodGet, "", http.StatusOK},
		{"Assertions API", "/api/assertions", http.MethodGet, "", http.StatusOK},
		{"Events API", "/api/events", http.MethodGet, "", http.StatusOK},
		{"Validate API", "/api/validate", http.MethodPost, `{"sentence":"{a} == {b}"}`, http.StatusOK},
		{"Evaluate API", "/api/evaluate", http.MethodPost, `{"sentence":"{a} == {b}","args":[1,1]}`, http.StatusOK},
		{"Evaluate arity", "/api/evaluate", http.MethodPost, `{"sentence":"{a} == {b}","args":[1]}`, http.StatusUnprocessableEntity},
		{"Validate wrong method", "/api/validate", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"Non-existent endpoint", "/api/nonexistent", http.MethodGet, "", http.StatusNotFound},
	}

	client := &http.Client{Timeout: 5 * time.Second}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, baseURL+tc.endpoint, strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("Failed to create request: %v", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, resp.StatusCode)
			}

			// Validate JSON responses for API endpoints
			if strings.HasPrefix(tc.endpoint, "/api/") && resp.StatusCode == http.StatusOK {
				body, err := io.ReadAll(resp.Body)
				if err != nil {
					t.Fatalf("Failed to read response body: %v", err)
				}

				var jsonData interface{}
				if err := json.Unmarshal(body, &jsonData); err != nil {
					t.Errorf("Invalid JSON response: %v", err)
				}
			}
		})
	}
}

// testDashboardStream checks that evaluations reach WebSocket clients
func testDashboardStream(t *testing.T) {
	engine := attest.NewEngine()
	port := freePort(t)
	engine.StartDashboard(port)
	defer engine.StopDashboard()

	baseURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, baseURL)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://localhost:%d/ws", port), nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the client.
	time.Sleep(50 * time.Millisecond)

	if _, err := engine.Attest(context.Background(), "{x} not equals {y}", 41, 42); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}
	if msg.Type != "event" {
		t.Errorf("Expected event message, got %q", msg.Type)
	}
	if msg.Data.Message != "Is x not equals y true? Yes it was" {
		t.Errorf("Unexpected event message %q", msg.Data.Message)
	}
}

// testConcurrentOperations tests thread safety under concurrent load
func testConcurrentOperations(t *testing.T) {
	engine := attest.NewEngine(attest.WithStandardOperators())
	ctx := context.Background()

	var wg sync.WaitGroup
	errCh := make(chan error, 200)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("assertion_%d", i)
			if err := engine.AddAssertion(name, "{a} `divides` {b}"); err != nil {
				errCh <- err
				return
			}
			for j := 1; j <= 10; j++ {
				if _, err := engine.Check(ctx, name, j, j*i); err != nil {
					errCh <- err
				}
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = engine.Assertions()
				_ = engine.Stats()
				if err := engine.RegisterOperator(fmt.Sprintf("noop %d", j), func(any, any) (bool, error) { return true, nil }); err != nil {
					errCh <- err
				}
			}
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Concurrent operation failed: %v", err)
	}
	if got := len(engine.Assertions()); got != 10 {
		t.Errorf("Expected 10 assertions, got %d", got)
	}
}

// testErrorHandling tests failures are reported, not swallowed
func testErrorHandling(t *testing.T) {
	engine := attest.NewEngine()
	ctx := context.Background()

	errorCases := []struct {
		name     string
		sentence string
		args     []any
	}{
		{"Unknown word", "{x} is {y}", []any{1, 2}},
		{"Unterminated operand", "{x == y", []any{1, 2}},
		{"Missing operand", "{x} equals", []any{1}},
		{"Missing argument", "{x} equals {y}", []any{1}},
		{"Unregistered operator", "{x} `resembles` {y}", []any{1, 2}},
		{"Incomparable", "{x} < {y}", []any{1, "two"}},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := engine.Attest(ctx, tc.sentence, tc.args...)
			if err == nil {
				t.Errorf("Expected error for %q, got result %+v", tc.sentence, res)
			}
			if res != nil {
				t.Error("Expected no partial result on error")
			}
		})
	}
}

// testPerformanceUnderLoad evaluates many sentences and checks throughput
func testPerformanceUnderLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	engine := attest.NewEngine()
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10000; i++ {
		if _, err := engine.Attest(ctx, "{lo} <= {x} < {hi}", 0, i%20, 10); err != nil {
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)

	if elapsed > 5*time.Second {
		t.Errorf("10000 evaluations took %v", elapsed)
	}
	if got := engine.Stats().Passed; got != 5000 {
		t.Errorf("Expected 5000 passing evaluations, got %d", got)
	}
}

// TestSystemIntegration builds the CLI and runs it against the example files
func TestSystemIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping system integration test in short mode")
	}

	binary := filepath.Join(t.TempDir(), "attest")

	t.Run("CLIBuild", func(t *testing.T) {
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/attest")
		cmd.Dir = "."

		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			t.Fatalf("Failed to build CLI: %v\nStderr: %s", err, stderr.String())
		}
	})

	t.Run("CLIRun", func(t *testing.T) {
		if _, err := os.Stat(binary); err != nil {
			t.Skip("CLI binary not built")
		}
		cmd := exec.Command(binary, "--config", "examples/attest.yaml", "run", "-f", "examples/scenarios/basic.yaml")
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		if err := cmd.Run(); err != nil {
			t.Fatalf("CLI run failed: %v\nOutput: %s", err, stdout.String())
		}
		if !strings.Contains(stdout.String(), "0 failed") {
			t.Errorf("Unexpected output: %s", stdout.String())
		}
	})
}

// TestScenarioFiles tests that the example scenario files load and hold
func TestScenarioFiles(t *testing.T) {
	files, err := filepath.Glob("examples/scenarios/*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("No scenario files found")
	}

	cfg, err := config.Load("examples/attest.yaml")
	if err != nil {
		t.Fatalf("Failed to load example config: %v", err)
	}
	limits, err := cfg.EngineLimits()
	if err != nil {
		t.Fatal(err)
	}
	engine := attest.NewEngine(attest.WithLimits(limits), attest.WithStandardOperators())

	for _, filename := range files {
		t.Run(filename, func(t *testing.T) {
			scenarios, err := config.LoadScenarios(filename)
			if err != nil {
				t.Fatalf("Failed to load %s: %v", filename, err)
			}

			for _, s := range scenarios {
				res, err := engine.Attest(context.Background(), s.Sentence, s.Args...)
				if err != nil {
					t.Errorf("%s: %v", s.Name, err)
					continue
				}
				if res.Passed != s.Expected() {
					t.Errorf("%s: %q was %v, expected %v", s.Name, s.Sentence, res.Passed, s.Expected())
				}
			}
		})
	}
}
