package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chosenoffset/attest/pkg/attest/metrics"
	"github.com/chosenoffset/attest/pkg/attest/trace"
)

const (
	maxSentenceBytes = 5000
	maxRequestBytes  = 64 * 1024
)

// Backend is what the dashboard needs from an engine.
type Backend interface {
	Validate(sentence string) (interface{}, error)
	Evaluate(ctx context.Context, sentence string, args []interface{}) (interface{}, error)
	Assertions() interface{}
	Stats() interface{}
}

type Server struct {
	port         int
	server       *http.Server
	serverMutex  sync.Mutex
	mux          *http.ServeMux
	upgrader     websocket.Upgrader
	clients      map[*websocket.Conn]bool
	clientsMutex sync.RWMutex
	maxClients   int
	events       chan EventUpdate
	stop         chan struct{}
	stopOnce     sync.Once
	startOnce    sync.Once
	eventBuffer  []EventUpdate
	eventIndex   int
	eventCount   int
	mutex        sync.RWMutex
	backend      Backend
	httpMetrics  *metrics.HTTPMetrics
	logger       *zap.Logger
}

type EventUpdate struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Assertion string      `json:"assertion,omitempty"`
	Sentence  string      `json:"sentence"`
	Outcome   bool        `json:"outcome"`
	Data      interface{} `json:"data,omitempty"`
}

type SentenceRequest struct {
	Sentence string        `json:"sentence"`
	Args     []interface{} `json:"args"`
}

func NewServer(port int, backend Backend, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		port: port,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow same origin and localhost for development
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
					return true
				}
				return origin == fmt.Sprintf("http://localhost:%d", port) ||
					origin == fmt.Sprintf("http://127.0.0.1:%d", port)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:     make(map[*websocket.Conn]bool),
		maxClients:  100,
		events:      make(chan EventUpdate, 100),
		stop:        make(chan struct{}),
		eventBuffer: make([]EventUpdate, 100), // Fixed-size circular buffer
		backend:     backend,
		httpMetrics: metrics.NewHTTPMetrics(),
		logger:      logger,
	}
	s.mux = s.routes()
	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)

	api := map[string]http.HandlerFunc{
		"/api/events":     s.handleEvents,
		"/api/metrics":    s.handleMetrics,
		"/api/assertions": s.handleAssertions,
		"/api/validate":   s.handleValidate,
		"/api/evaluate":   s.handleEvaluate,
	}
	for route, h := range api {
		mux.HandleFunc(route, s.httpMetrics.Middleware(route, h))
	}

	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Handler returns the dashboard's HTTP handler and starts the broadcaster.
func (s *Server) Handler() http.Handler {
	s.startOnce.Do(func() { go s.broadcast() })
	return s.mux
}

// Start serves the dashboard until Stop is called.
func (s *Server) Start() error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.serverMutex.Lock()
	select {
	case <-s.stop:
		s.serverMutex.Unlock()
		return nil
	default:
	}
	s.server = server
	s.serverMutex.Unlock()

	s.logger.Info("starting attest dashboard", zap.Int("port", s.port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	s.serverMutex.Lock()
	s.stopOnce.Do(func() { close(s.stop) })
	server := s.server
	s.serverMutex.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
	return nil
}

// Publish queues an event for the buffer and every WebSocket client.
func (s *Server) Publish(event EventUpdate) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case s.events <- event:
	default:
		// Drop if channel is full
		s.logger.Debug("dashboard event dropped", zap.String("id", event.ID))
	}
}

// Handle implements trace.Handler so the server can subscribe to an
// engine's evaluation events.
func (s *Server) Handle(event trace.Event) error {
	s.Publish(EventUpdate{
		Timestamp: event.Timestamp,
		Type:      string(event.Type),
		Message:   event.Describe(),
		Assertion: event.Assertion,
		Sentence:  event.Sentence,
		Outcome:   event.Outcome,
	})
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   s.RecentEvents(),
	})
}

// RecentEvents returns the buffered events, oldest first.
func (s *Server) RecentEvents() []EventUpdate {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events := make([]EventUpdate, s.eventCount)
	bufferSize := len(s.eventBuffer)
	if s.eventCount == bufferSize {
		// Buffer is full, start from oldest
		for i := 0; i < bufferSize; i++ {
			events[i] = s.eventBuffer[(s.eventIndex+i)%bufferSize]
		}
	} else {
		copy(events, s.eventBuffer[:s.eventCount])
	}
	return events
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var stats interface{}
	if s.backend != nil {
		stats = s.backend.Stats()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"evaluations": stats,
			"http":        s.httpMetrics.GetStats(),
		},
	})
}

func (s *Server) handleAssertions(w http.ResponseWriter, r *http.Request) {
	var assertions interface{} = []interface{}{}
	if s.backend != nil {
		assertions = s.backend.Assertions()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   assertions,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSentence(w, r)
	if !ok {
		return
	}

	tokens, err := s.backend.Validate(req.Sentence)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid":  false,
			"errors": []string{err.Error()},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  true,
		"tokens": tokens,
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSentence(w, r)
	if !ok {
		return
	}

	result, err := s.backend.Evaluate(r.Context(), req.Sentence, req.Args)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   result,
	})
}

func (s *Server) decodeSentence(w http.ResponseWriter, r *http.Request) (SentenceRequest, bool) {
	var req SentenceRequest
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	if s.backend == nil {
		http.Error(w, "No engine attached", http.StatusServiceUnavailable)
		return req, false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON request", http.StatusBadRequest)
		return req, false
	}
	if req.Sentence == "" {
		http.Error(w, "Sentence is required", http.StatusBadRequest)
		return req, false
	}
	if len(req.Sentence) > maxSentenceBytes {
		http.Error(w, fmt.Sprintf("Sentence exceeds maximum length of %d characters", maxSentenceBytes), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Check client limit before upgrading
	s.clientsMutex.RLock()
	clientCount := len(s.clients)
	s.clientsMutex.RUnlock()

	if clientCount >= s.maxClients {
		http.Error(w, "Maximum clients reached", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	s.clientsMutex.Lock()
	s.clients[conn] = true
	s.clientsMutex.Unlock()

	defer func() {
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		s.clientsMutex.Unlock()
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Reading is required to notice client disconnects.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Debug("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.clientsMutex.RLock()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.clientsMutex.RUnlock()
			if err != nil {
				return
			}
		case <-readDone:
			return
		case <-s.stop:
			s.clientsMutex.RLock()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			s.clientsMutex.RUnlock()
			return
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

func (s *Server) broadcast() {
	for {
		select {
		case event := <-s.events:
			s.mutex.Lock()
			s.eventBuffer[s.eventIndex] = event
			s.eventIndex = (s.eventIndex + 1) % len(s.eventBuffer)
			if s.eventCount < len(s.eventBuffer) {
				s.eventCount++
			}
			s.mutex.Unlock()

			s.broadcastMessage(map[string]interface{}{
				"type": "event",
				"data": event,
			})
		case <-s.stop:
			return
		}
	}
}

func (s *Server) broadcastMessage(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("marshaling dashboard message", zap.Error(err))
		return
	}

	// gorilla connections allow one concurrent writer; the ping ticker
	// writes under the read lock.
	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()

	for client := range s.clients {
		client.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			client.Close()
			delete(s.clients, client)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Attest Dashboard</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background: #f5f5f5; }
        .header { background: #2c3e50; color: white; padding: 20px; border-radius: 5px; margin-bottom: 20px; }
        .card { background: white; padding: 20px; border-radius: 5px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); margin-bottom: 20px; }
        .event { padding: 8px; margin: 4px 0; border-left: 4px solid #3498db; background: #ecf0f1; font-family: monospace; }
        .event.fail { border-left-color: #e74c3c; }
        input { width: 60%; padding: 5px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Attest Dashboard</h1>
        <p>Live assertion evaluations</p>
    </div>
    <div class="card">
        <input id="sentence" placeholder="{x} not equals {y}">
        <input id="args" placeholder="[41, 42]" style="width: 20%">
        <button onclick="evaluate()">Evaluate</button>
        <pre id="result"></pre>
    </div>
    <div class="card">
        <h3>Events</h3>
        <div id="events"></div>
    </div>
    <script>
        function addEvent(ev) {
            const div = document.createElement('div');
            div.className = 'event' + (ev.outcome ? '' : ' fail');
            div.textContent = new Date(ev.timestamp).toLocaleTimeString() + ' ' + ev.message;
            const list = document.getElementById('events');
            list.insertBefore(div, list.firstChild);
        }
        fetch('api/events').then(r => r.json()).then(j => (j.data || []).forEach(addEvent));
        const ws = new WebSocket('ws://' + location.host + location.pathname.replace(/\/$/, '') + '/ws');
        ws.onmessage = m => { const msg = JSON.parse(m.data); if (msg.type === 'event') addEvent(msg.data); };
        function evaluate() {
            const body = { sentence: document.getElementById('sentence').value,
                           args: JSON.parse(document.getElementById('args').value || '[]') };
            fetch('api/evaluate', { method: 'POST', body: JSON.stringify(body) })
                .then(r => r.json()).then(j => document.getElementById('result').textContent = JSON.stringify(j, null, 2));
        }
    </script>
</body>
</html>`
