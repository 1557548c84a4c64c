// Package registry provides a generic, thread-safe name to factory registry.
//
// The routing package uses it to resolve the strategy engine named in the
// configuration:
//
//	engines := registry.New[routing.Factory]()
//	engines.Register(routing.NewDefaultFactory())
//	factory, err := engines.Get("default")
//	engine := factory.New(logger)
package registry

import (
	"fmt"
	"sort"
	"sync"

	"audio-policy/internal/common/errors"
)

// Factory is implemented by every type stored in a Registry
type Factory interface {
	// Name returns the identifier the factory is registered under
	Name() string
}

// Registry maps names to factories of type T
type Registry[T Factory] struct {
	factories map[string]T
	mu        sync.RWMutex
}

// New creates a new empty registry for factories of type T.
func New[T Factory]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]T),
	}
}

// Register adds factory under its own name, replacing any previous entry.
func (r *Registry[T]) Register(factory T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[factory.Name()] = factory
}

// Get retrieves a factory by name.
// Returns a not-found AppError when nothing is registered under name.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		var zero T
		return zero, errors.NotFoundError(fmt.Sprintf("factory %q", name))
	}
	return factory, nil
}

// Names returns the registered names in lexical order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a factory name is registered.
func (r *Registry[T]) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Count returns the number of registered factories.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
