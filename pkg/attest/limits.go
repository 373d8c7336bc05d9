package attest

import "time"

// Limits bounds the work a single engine accepts. A zero field means that
// dimension is unbounded.
type Limits struct {
	MaxSentenceLength  int           // Maximum sentence length in bytes
	MaxTokens          int           // Maximum operator and operand tokens per sentence
	MaxAssertions      int           // Maximum number of named assertions
	MaxCachedSentences int           // Maximum compiled sentences kept for reuse
	MaxEvaluationTime  time.Duration // Maximum wall-clock time per evaluation
}

// DefaultLimits returns reasonable default limits
func DefaultLimits() *Limits {
	return &Limits{
		MaxSentenceLength:  4096,
		MaxTokens:          256,
		MaxAssertions:      1000,
		MaxCachedSentences: 1024,
		MaxEvaluationTime:  time.Second,
	}
}
