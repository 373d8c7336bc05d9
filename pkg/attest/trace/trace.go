package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

type EventType string

const (
	ComparisonEvent EventType = "comparison"
	VerdictEvent    EventType = "verdict"
	ErrorEvent      EventType = "error"
)

// Event describes one step of an evaluation.
type Event struct {
	Type      EventType `json:"type"`
	Assertion string    `json:"assertion,omitempty"`
	Sentence  string    `json:"sentence"`
	Left      string    `json:"left,omitempty"`
	Operator  string    `json:"operator,omitempty"`
	Right     string    `json:"right,omitempty"`
	Outcome   bool      `json:"outcome"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Describe renders the event as a single human-readable line.
func (e Event) Describe() string {
	switch e.Type {
	case ComparisonEvent:
		answer := "No it wasn't"
		if e.Outcome {
			answer = "Yes it was"
		}
		return fmt.Sprintf("Is %s %s %s true? %s", e.Left, e.Operator, e.Right, answer)
	case VerdictEvent:
		if e.Outcome {
			return fmt.Sprintf("PASS %s", e.Sentence)
		}
		return fmt.Sprintf("FAIL %s", e.Sentence)
	default:
		return fmt.Sprintf("ERROR %s: %s", e.Sentence, e.Message)
	}
}

type Handler interface {
	Handle(event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(Event) error

func (f HandlerFunc) Handle(event Event) error { return f(event) }

// ConsoleHandler writes Describe lines to an io.Writer, stdout by default.
type ConsoleHandler struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleHandler(w io.Writer) *ConsoleHandler {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleHandler{w: w}
}

func (h *ConsoleHandler) Handle(event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, event.Describe())
	return err
}

type LogHandler struct {
	logger *zap.Logger
}

func NewLogHandler(logger *zap.Logger) *LogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Handle(event Event) error {
	fields := []zap.Field{
		zap.String("type", string(event.Type)),
		zap.String("sentence", event.Sentence),
		zap.Bool("outcome", event.Outcome),
	}
	if event.Assertion != "" {
		fields = append(fields, zap.String("assertion", event.Assertion))
	}

	switch event.Type {
	case ErrorEvent:
		h.logger.Warn(event.Describe(), fields...)
	case VerdictEvent:
		h.logger.Info(event.Describe(), fields...)
	default:
		h.logger.Debug(event.Describe(), fields...)
	}
	return nil
}

// Registry fans events out to every handler subscribed to their type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[EventType][]Handler),
	}
}

func (r *Registry) RegisterHandler(eventType EventType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

// RegisterAll subscribes handler to every event type.
func (r *Registry) RegisterAll(handler Handler) {
	for _, et := range []EventType{ComparisonEvent, VerdictEvent, ErrorEvent} {
		r.RegisterHandler(et, handler)
	}
}

// Emit delivers event to its handlers. Events nobody listens to are dropped.
func (r *Registry) Emit(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	r.mu.RLock()
	handlers := r.handlers[event.Type]
	if len(handlers) == 0 {
		r.mu.RUnlock()
		return nil
	}

	// Copy handlers to release lock quickly
	handlersCopy := make([]Handler, len(handlers))
	copy(handlersCopy, handlers)
	r.mu.RUnlock()

	for _, handler := range handlersCopy {
		if err := handler.Handle(event); err != nil {
			return fmt.Errorf("handler error for %s: %w", event.Type, err)
		}
	}
	return nil
}
