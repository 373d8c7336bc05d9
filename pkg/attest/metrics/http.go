package metrics

import (
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPMetrics tracks request statistics per route of the dashboard API.
type HTTPMetrics struct {
	requestCount int64
	errorCount   int64
	pending      int64
	startTime    time.Time

	mu     sync.Mutex
	routes map[string]*routeCounters
}

type routeCounters struct {
	requests     int64
	errors       int64
	totalLatency time.Duration
	maxLatency   time.Duration
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{
		startTime: time.Now(),
		routes:    make(map[string]*routeCounters),
	}
}

// RouteStats summarises one route.
type RouteStats struct {
	Route      string `json:"route"`
	Requests   int64  `json:"requests"`
	Errors     int64  `json:"errors"`
	AvgLatency int64  `json:"avg_latency_ns"`
	MaxLatency int64  `json:"max_latency_ns"`
}

// HTTPStats represents current HTTP performance statistics
type HTTPStats struct {
	RequestCount int64        `json:"request_count"`
	ErrorCount   int64        `json:"error_count"`
	ErrorRate    float64      `json:"error_rate"`   // Percentage
	RequestRate  float64      `json:"request_rate"` // Per second
	Pending      int64        `json:"pending_requests"`
	Routes       []RouteStats `json:"routes"`
	Timestamp    time.Time    `json:"timestamp"`
}

// ResponseWriter wrapper to capture status codes
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.written {
		rw.statusCode = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(data)
}

// Middleware wraps next and records its calls under route.
func (h *HTTPMetrics) Middleware(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&h.pending, 1)
		defer atomic.AddInt64(&h.pending, -1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapped, r)

		d := time.Since(start)
		failed := wrapped.statusCode >= 400

		atomic.AddInt64(&h.requestCount, 1)
		if failed {
			atomic.AddInt64(&h.errorCount, 1)
		}

		h.mu.Lock()
		rc, ok := h.routes[route]
		if !ok {
			rc = &routeCounters{}
			h.routes[route] = rc
		}
		rc.requests++
		if failed {
			rc.errors++
		}
		rc.totalLatency += d
		if d > rc.maxLatency {
			rc.maxLatency = d
		}
		h.mu.Unlock()
	}
}

// GetStats returns current HTTP performance statistics
func (h *HTTPMetrics) GetStats() HTTPStats {
	stats := HTTPStats{
		RequestCount: atomic.LoadInt64(&h.requestCount),
		ErrorCount:   atomic.LoadInt64(&h.errorCount),
		Pending:      atomic.LoadInt64(&h.pending),
		Timestamp:    time.Now(),
	}
	if stats.RequestCount > 0 {
		stats.ErrorRate = float64(stats.ErrorCount) / float64(stats.RequestCount) * 100
		if uptime := time.Since(h.startTime); uptime > 0 {
			stats.RequestRate = float64(stats.RequestCount) / uptime.Seconds()
		}
	}

	h.mu.Lock()
	for route, rc := range h.routes {
		rs := RouteStats{
			Route:      route,
			Requests:   rc.requests,
			Errors:     rc.errors,
			MaxLatency: rc.maxLatency.Nanoseconds(),
		}
		if rc.requests > 0 {
			rs.AvgLatency = rc.totalLatency.Nanoseconds() / rc.requests
		}
		stats.Routes = append(stats.Routes, rs)
	}
	h.mu.Unlock()

	sort.Slice(stats.Routes, func(i, j int) bool { return stats.Routes[i].Route < stats.Routes[j].Route })
	return stats
}
