package cqrs

import (
	"fmt"
	"sync"
)

// QueryBus dispatches queries to their registered handlers. Results are
// returned as any; callers assert to the handler's result type.
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[string]func(Query) (any, error)
}

// NewQueryBus creates a QueryBus.
func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[string]func(Query) (any, error))}
}

// RegisterQuery registers a handler for the query type Q with result type R.
func RegisterQuery[Q Query, R any](b *QueryBus, handler QueryHandler[Q, R]) error {
	var zero Q
	name := zero.Name()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("handler already registered for query %s", name)
	}
	b.handlers[name] = func(q Query) (any, error) {
		typed, ok := q.(Q)
		if !ok {
			return nil, fmt.Errorf("query %s has unexpected type %T", name, q)
		}
		return handler.Handle(typed)
	}
	return nil
}

// Dispatch sends a query to its registered handler and returns the result.
func (b *QueryBus) Dispatch(q Query) (any, error) {
	b.mu.RLock()
	handler, exists := b.handlers[q.Name()]
	b.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no handler registered for query %s", q.Name())
	}
	return handler(q)
}
