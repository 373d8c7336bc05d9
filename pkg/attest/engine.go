package attest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chosenoffset/attest/pkg/attest/dashboard"
	"github.com/chosenoffset/attest/pkg/attest/metrics"
	"github.com/chosenoffset/attest/pkg/attest/operators"
	"github.com/chosenoffset/attest/pkg/attest/parser"
	"github.com/chosenoffset/attest/pkg/attest/trace"
)

// Engine compiles assertion sentences, keeps named assertions and evaluates
// them against runtime values. It is safe for concurrent use.
type Engine struct {
	assertions map[string]*Assertion
	cache      map[string]*parser.Expression
	evaluator  *Evaluator
	operators  *operators.Registry
	tracer     *trace.Registry
	stats      *metrics.EvalStats
	limits     *Limits
	logger     *zap.Logger
	mutex      sync.RWMutex

	dashboard        *dashboard.Server
	dashboardRunning bool
	dashboardMutex   sync.RWMutex
}

// Assertion is a named, compiled sentence.
type Assertion struct {
	// Name is the unique identifier for this assertion
	Name string `json:"name"`
	// Sentence is the source text
	Sentence string `json:"sentence"`
	// Expression is the parsed sentence, reused on every check
	Expression *parser.Expression `json:"-"`
	Added      time.Time          `json:"added"`
	// LastChecked and LastPassed describe the most recent successful check.
	LastChecked time.Time `json:"last_checked"`
	LastPassed  bool      `json:"last_passed"`
}

type Option func(*Engine)

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithLimits(limits *Limits) Option {
	return func(e *Engine) {
		if limits != nil {
			copied := *limits
			e.limits = &copied
		}
	}
}

// WithTraceHandler subscribes h to every trace event.
func WithTraceHandler(h trace.Handler) Option {
	return func(e *Engine) {
		e.tracer.RegisterAll(h)
	}
}

// WithConsoleTrace prints one line per comparison and verdict to w.
func WithConsoleTrace(w io.Writer) Option {
	return WithTraceHandler(trace.NewConsoleHandler(w))
}

// WithStandardOperators registers contains, starts with, ends with and
// divides.
func WithStandardOperators() Option {
	return func(e *Engine) {
		operators.RegisterStandard(e.operators)
	}
}

// NewEngine creates an engine with default limits, no user operators and a
// no-op logger.
func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		assertions: make(map[string]*Assertion),
		cache:      make(map[string]*parser.Expression),
		operators:  operators.NewRegistry(),
		tracer:     trace.NewRegistry(),
		stats:      metrics.NewEvalStats(),
		limits:     DefaultLimits(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(engine)
	}

	engine.evaluator = NewEvaluator(engine.operators, engine.tracer)

	// Error events are logged; verdicts and comparisons are logged at
	// lower levels by the same handler.
	engine.tracer.RegisterAll(trace.NewLogHandler(engine.logger))
	engine.tracer.RegisterAll(trace.HandlerFunc(engine.forwardToDashboard))

	return engine
}

// Compile parses sentence, reusing an earlier parse of the same text.
//
// Returns an error if:
//   - The sentence is longer than Limits.MaxSentenceLength
//   - The sentence does not tokenize (*parser.ParseError)
//   - The sentence has more than Limits.MaxTokens tokens
func (e *Engine) Compile(sentence string) (*parser.Expression, error) {
	e.mutex.RLock()
	limits := e.limits
	expr, ok := e.cache[sentence]
	e.mutex.RUnlock()
	if ok {
		return expr, nil
	}

	if limits.MaxSentenceLength > 0 && len(sentence) > limits.MaxSentenceLength {
		return nil, fmt.Errorf("%w (%d > %d)", ErrSentenceTooLong, len(sentence), limits.MaxSentenceLength)
	}

	expr, err := parser.Parse(sentence, parser.WithMaxTokens(limits.MaxTokens))
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	if limits.MaxCachedSentences > 0 && len(e.cache) >= limits.MaxCachedSentences {
		clear(e.cache)
	}
	e.cache[sentence] = expr
	e.mutex.Unlock()

	e.logger.Debug("compiled sentence",
		zap.String("sentence", sentence),
		zap.Int("operators", len(expr.Operators)),
		zap.Int("operands", len(expr.Operands)))
	return expr, nil
}

// AddAssertion compiles sentence and stores it under name, replacing any
// assertion already registered with that name.
func (e *Engine) AddAssertion(name, sentence string) error {
	if name == "" {
		return fmt.Errorf("assertion name is required")
	}

	expr, err := e.Compile(sentence)
	if err != nil {
		return fmt.Errorf("assertion %q: %w", name, err)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, exists := e.assertions[name]; !exists && e.limits.MaxAssertions > 0 && len(e.assertions) >= e.limits.MaxAssertions {
		return fmt.Errorf("%w (%d)", ErrTooManyAssertions, e.limits.MaxAssertions)
	}

	e.assertions[name] = &Assertion{
		Name:       name,
		Sentence:   sentence,
		Expression: expr,
		Added:      time.Now(),
	}
	e.logger.Info("assertion added", zap.String("name", name), zap.String("sentence", sentence))
	return nil
}

// RemoveAssertion deletes the named assertion. It reports whether the
// assertion existed.
func (e *Engine) RemoveAssertion(name string) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	_, exists := e.assertions[name]
	delete(e.assertions, name)
	return exists
}

// ClearAssertions removes every named assertion.
func (e *Engine) ClearAssertions() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.assertions = make(map[string]*Assertion)
}

// Assertions returns copies of the registered assertions sorted by name.
func (e *Engine) Assertions() []Assertion {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	out := make([]Assertion, 0, len(e.assertions))
	for _, a := range e.assertions {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Check evaluates the named assertion against args.
func (e *Engine) Check(ctx context.Context, name string, args ...any) (*Result, error) {
	e.mutex.RLock()
	a, ok := e.assertions[name]
	var expr *parser.Expression
	if ok {
		expr = a.Expression
	}
	e.mutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAssertion, name)
	}

	res, err := e.run(ctx, name, expr, args)
	if err != nil {
		return nil, err
	}

	e.mutex.Lock()
	// The assertion may have been replaced or removed meanwhile.
	if cur, ok := e.assertions[name]; ok && cur == a {
		a.LastChecked = time.Now()
		a.LastPassed = res.Passed
	}
	e.mutex.Unlock()
	return res, nil
}

// Attest compiles sentence and evaluates it against args.
func (e *Engine) Attest(ctx context.Context, sentence string, args ...any) (*Result, error) {
	start := time.Now()
	expr, err := e.Compile(sentence)
	if err != nil {
		e.stats.Record(metrics.ParseFailed, 0, time.Since(start))
		e.emitError("", sentence, err)
		return nil, err
	}
	return e.run(ctx, "", expr, args)
}

func (e *Engine) run(ctx context.Context, name string, expr *parser.Expression, args []any) (*Result, error) {
	e.mutex.RLock()
	timeout := e.limits.MaxEvaluationTime
	e.mutex.RUnlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.evaluator.evaluate(ctx, name, expr, args)
	if err != nil {
		e.stats.Record(metrics.Errored, 0, time.Since(start))
		e.emitError(name, expr.Source, err)
		return nil, err
	}

	outcome := metrics.Failed
	if res.Passed {
		outcome = metrics.Passed
	}
	e.stats.Record(outcome, len(res.Steps), res.Duration)
	return res, nil
}

func (e *Engine) emitError(name, sentence string, err error) {
	_ = e.tracer.Emit(trace.Event{
		Type:      trace.ErrorEvent,
		Assertion: name,
		Sentence:  sentence,
		Message:   err.Error(),
	})
}

// RegisterOperator makes a backquoted operator available to sentences.
func (e *Engine) RegisterOperator(name string, fn operators.Func) error {
	return e.operators.Register(name, fn)
}

// Operators lists the registered user operators.
func (e *Engine) Operators() []string {
	return e.operators.Names()
}

// AddTraceHandler subscribes h to every trace event.
func (e *Engine) AddTraceHandler(h trace.Handler) {
	e.tracer.RegisterAll(h)
}

// Stats returns a snapshot of the evaluation counters.
func (e *Engine) Stats() metrics.EvalSnapshot {
	return e.stats.Snapshot()
}

// ResetStats zeroes the evaluation counters.
func (e *Engine) ResetStats() {
	e.stats.Reset()
}

// SetLimits updates the limits. Cached compilations are dropped since they
// were checked against the old token bound.
func (e *Engine) SetLimits(limits *Limits) {
	copied := *limits
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.limits = &copied
	clear(e.cache)
}

// GetLimits returns a copy of the current limits. Changes to it take
// effect only through SetLimits.
func (e *Engine) GetLimits() *Limits {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	limits := *e.limits
	return &limits
}

// StartDashboard launches the dashboard on port in the background. Starting
// an already running dashboard is a no-op.
func (e *Engine) StartDashboard(port int) {
	e.dashboardMutex.Lock()
	if e.dashboardRunning {
		e.dashboardMutex.Unlock()
		return
	}
	server := dashboard.NewServer(port, &engineBackend{engine: e}, e.logger)
	e.dashboard = server
	e.dashboardRunning = true
	e.dashboardMutex.Unlock()

	go func() {
		if err := server.Start(); err != nil {
			e.logger.Error("dashboard failed to start", zap.Int("port", port), zap.Error(err))
			e.dashboardMutex.Lock()
			if e.dashboard == server {
				e.dashboardRunning = false
				e.dashboard = nil
			}
			e.dashboardMutex.Unlock()
		}
	}()
}

// StopDashboard shuts the dashboard down.
func (e *Engine) StopDashboard() error {
	e.dashboardMutex.Lock()
	server := e.dashboard
	e.dashboard = nil
	e.dashboardRunning = false
	e.dashboardMutex.Unlock()

	if server == nil {
		return nil
	}
	return server.Stop()
}

// DashboardRunning reports whether the dashboard has been started and not
// stopped.
func (e *Engine) DashboardRunning() bool {
	e.dashboardMutex.RLock()
	defer e.dashboardMutex.RUnlock()
	return e.dashboardRunning
}

// DashboardHandler returns a dashboard bound to this engine without
// listening on a port, for mounting into an existing server. Its events are
// not fed by the engine's tracer; subscribe it with AddTraceHandler.
func (e *Engine) DashboardHandler() *dashboard.Server {
	return dashboard.NewServer(0, &engineBackend{engine: e}, e.logger)
}

func (e *Engine) forwardToDashboard(event trace.Event) error {
	e.dashboardMutex.RLock()
	server := e.dashboard
	e.dashboardMutex.RUnlock()
	if server == nil {
		return nil
	}
	return server.Handle(event)
}

// engineBackend exposes an Engine to the dashboard.
type engineBackend struct {
	engine *Engine
}

// TokenView is the dashboard's rendering of a token.
type TokenView struct {
	Type     string `json:"type"`
	Lexeme   string `json:"lexeme"`
	Position int    `json:"position"`
	Index    int    `json:"index"`
}

func (b *engineBackend) Validate(sentence string) (interface{}, error) {
	expr, err := b.engine.Compile(sentence)
	if err != nil {
		return nil, err
	}
	tokens := expr.Tokens()
	views := make([]TokenView, len(tokens))
	for i, tok := range tokens {
		views[i] = TokenView{
			Type:     tok.Type.String(),
			Lexeme:   tok.Lexeme,
			Position: tok.Position,
			Index:    tok.Index,
		}
	}
	return views, nil
}

func (b *engineBackend) Evaluate(ctx context.Context, sentence string, args []interface{}) (interface{}, error) {
	return b.engine.Attest(ctx, sentence, args...)
}

func (b *engineBackend) Assertions() interface{} {
	return b.engine.Assertions()
}

func (b *engineBackend) Stats() interface{} {
	return b.engine.Stats()
}
