// internal/delivery/registry.go
package delivery

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Handler delivers a message to a target identified by target.
type Handler func(ctx context.Context, target, message string) error

// Registry routes messages to the appropriate delivery handler based on
// target prefix (e.g. "telegram:", "log:").
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty delivery registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for targets starting with prefix.
func (r *Registry) Register(prefix string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
}

// Has reports whether some handler accepts target.
func (r *Registry) Has(target string) bool {
	_, ok := r.lookup(target)
	return ok
}

// Deliver finds the handler matching the target prefix and calls it.
// Returns an error if no handler is registered for the prefix.
func (r *Registry) Deliver(ctx context.Context, target, message string) error {
	handler, ok := r.lookup(target)
	if !ok {
		return fmt.Errorf("no delivery handler for target: %s", target)
	}
	return handler(ctx, target, message)
}

// lookup prefers the longest matching prefix.
func (r *Registry) lookup(target string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best string
	var handler Handler
	for prefix, h := range r.handlers {
		if strings.HasPrefix(target, prefix) && len(prefix) > len(best) {
			best, handler = prefix, h
		}
	}
	return handler, handler != nil
}
