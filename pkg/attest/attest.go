package attest

import (
	"context"
	"sync"
)

var (
	defaultEngine *Engine
	defaultOnce   sync.Once
)

// Default returns the engine used by the package-level helpers. It has the
// standard operators registered and default limits.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = NewEngine(WithStandardOperators())
	})
	return defaultEngine
}

// Attest evaluates sentence against args with the default engine and
// reports whether every comparison held.
//
//	ok, err := attest.Attest("{x} not equals {y}", 41, 42) // true, nil
func Attest(sentence string, args ...any) (bool, error) {
	res, err := Default().Attest(context.Background(), sentence, args...)
	if err != nil {
		return false, err
	}
	return res.Passed, nil
}

// MustAttest is like Attest but panics when the sentence cannot be
// evaluated.
func MustAttest(sentence string, args ...any) bool {
	ok, err := Attest(sentence, args...)
	if err != nil {
		panic(err)
	}
	return ok
}
