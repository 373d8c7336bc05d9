package metrics

import (
	"sync/atomic"
	"time"
)

// Outcome classifies a finished evaluation.
type Outcome int

const (
	Passed Outcome = iota
	Failed
	ParseFailed
	Errored
)

// EvalStats counts evaluations and their latency. The zero value is not
// usable; call NewEvalStats.
type EvalStats struct {
	evaluations   int64
	passed        int64
	failed        int64
	parseFailures int64
	errors        int64
	comparisons   int64
	totalLatency  int64 // nanoseconds
	maxLatency    int64 // nanoseconds
	startTime     atomic.Value
}

func NewEvalStats() *EvalStats {
	s := &EvalStats{}
	s.startTime.Store(time.Now())
	return s
}

// EvalSnapshot is a point-in-time copy of EvalStats.
type EvalSnapshot struct {
	Evaluations   int64     `json:"evaluations"`
	Passed        int64     `json:"passed"`
	Failed        int64     `json:"failed"`
	ParseFailures int64     `json:"parse_failures"`
	Errors        int64     `json:"errors"`
	Comparisons   int64     `json:"comparisons"`
	PassRate      float64   `json:"pass_rate"`      // Percentage
	AvgLatency    int64     `json:"avg_latency_ns"` // Nanoseconds
	MaxLatency    int64     `json:"max_latency_ns"` // Nanoseconds
	Uptime        string    `json:"uptime"`
	Timestamp     time.Time `json:"timestamp"`
}

// Record adds one evaluation that ran comparisons steps and took d.
func (s *EvalStats) Record(outcome Outcome, comparisons int, d time.Duration) {
	atomic.AddInt64(&s.evaluations, 1)
	atomic.AddInt64(&s.comparisons, int64(comparisons))

	switch outcome {
	case Passed:
		atomic.AddInt64(&s.passed, 1)
	case Failed:
		atomic.AddInt64(&s.failed, 1)
	case ParseFailed:
		atomic.AddInt64(&s.parseFailures, 1)
	default:
		atomic.AddInt64(&s.errors, 1)
	}

	ns := d.Nanoseconds()
	atomic.AddInt64(&s.totalLatency, ns)
	for {
		current := atomic.LoadInt64(&s.maxLatency)
		if ns <= current {
			break
		}
		if atomic.CompareAndSwapInt64(&s.maxLatency, current, ns) {
			break
		}
	}
}

func (s *EvalStats) Snapshot() EvalSnapshot {
	snap := EvalSnapshot{
		Evaluations:   atomic.LoadInt64(&s.evaluations),
		Passed:        atomic.LoadInt64(&s.passed),
		Failed:        atomic.LoadInt64(&s.failed),
		ParseFailures: atomic.LoadInt64(&s.parseFailures),
		Errors:        atomic.LoadInt64(&s.errors),
		Comparisons:   atomic.LoadInt64(&s.comparisons),
		MaxLatency:    atomic.LoadInt64(&s.maxLatency),
		Uptime:        time.Since(s.startTime.Load().(time.Time)).Round(time.Second).String(),
		Timestamp:     time.Now(),
	}
	if snap.Evaluations > 0 {
		snap.PassRate = float64(snap.Passed) / float64(snap.Evaluations) * 100
		snap.AvgLatency = atomic.LoadInt64(&s.totalLatency) / snap.Evaluations
	}
	return snap
}

// Reset clears all counters (useful for testing)
func (s *EvalStats) Reset() {
	for _, p := range []*int64{
		&s.evaluations, &s.passed, &s.failed, &s.parseFailures,
		&s.errors, &s.comparisons, &s.totalLatency, &s.maxLatency,
	} {
		atomic.StoreInt64(p, 0)
	}
	s.startTime.Store(time.Now())
}
