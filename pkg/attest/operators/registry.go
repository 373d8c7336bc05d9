package operators

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/chosenoffset/attest/pkg/attest/parser"
)

// Func is a user-defined binary operator.
type Func func(left, right any) (bool, error)

// Registry maps backtick operator names to their implementations.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{
		ops: make(map[string]Func),
	}
}

// Register binds name to fn, replacing any earlier binding.
func (r *Registry) Register(name string, fn Func) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("operator name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("operator %q: nil implementation", name)
	}
	for _, kw := range parser.Keywords {
		if kw.Text.String() == name {
			return fmt.Errorf("operator %q shadows a builtin comparison", name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[name] = fn
	return nil
}

func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, name)
}

func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.ops[name]
	return fn, ok
}

// Apply resolves both arguments and runs the operator registered as name.
func (r *Registry) Apply(name string, left, right any) (bool, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return false, fmt.Errorf("%w: `%s`", ErrUnsupportedOperator, name)
	}

	left, err := Resolve(left)
	if err != nil {
		return false, err
	}
	right, err = Resolve(right)
	if err != nil {
		return false, err
	}

	ok, err = fn(left, right)
	if err != nil {
		return false, fmt.Errorf("operator `%s`: %w", name, err)
	}
	return ok, nil
}

// Names returns the registered operator names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}
