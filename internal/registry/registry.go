// Package registry maps strategy type names to their executors. It is an
// explicit plugin table owned by the caller, not an ambient global: the
// coordinator receives a *Registry at construction.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jmhart/scout/internal/strategy"
)

// NotFoundError reports a lookup for an unregistered strategy type. A missing
// strategy is a deployment bug, so callers must treat it as fatal rather than
// degrade to a default.
type NotFoundError struct {
	Type string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no strategy registered for type %q", e.Type)
}

type Registry struct {
	mu        sync.RWMutex
	executors map[string]strategy.Executor
}

func New() *Registry {
	return &Registry{executors: map[string]strategy.Executor{}}
}

// Register binds a type name to an executor. Re-registering a type overwrites
// the previous binding; registration happens once at startup, so no warning
// is emitted.
func (r *Registry) Register(typeName string, exec strategy.Executor) error {
	if typeName == "" {
		return fmt.Errorf("registry: empty strategy type name")
	}
	if exec == nil {
		return fmt.Errorf("registry: nil executor for type %q", typeName)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[typeName] = exec
	return nil
}

// Get returns the executor for a type, or a *NotFoundError.
func (r *Registry) Get(typeName string) (strategy.Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[typeName]
	if !ok {
		return nil, &NotFoundError{Type: typeName}
	}
	return exec, nil
}

func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[typeName]
	return ok
}

// Types returns the registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executors))
	for t := range r.executors {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
