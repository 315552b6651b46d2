package cqrs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCommandBusShuttingDown is returned when a command is dispatched to a bus
// that is shutting down.
var ErrCommandBusShuttingDown = errors.New("command bus is shutting down")

// CommandBus dispatches commands to their registered handlers. New commands
// are rejected once a shutdown has been initiated, but in-flight commands are
// allowed to complete.
type CommandBus struct {
	mu             sync.RWMutex
	handlers       map[string]func(Command) error
	isShuttingDown bool
	active         sync.WaitGroup
}

// NewCommandBus creates a CommandBus. If ctx is non-nil, cancelling it
// initiates a graceful shutdown of the bus.
func NewCommandBus(ctx context.Context) *CommandBus {
	b := &CommandBus{handlers: make(map[string]func(Command) error)}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			b.Shutdown()
		}()
	}
	return b
}

// RegisterCommand registers a handler for the command type C. Registering a
// second handler for the same command name is an error.
func RegisterCommand[C Command](b *CommandBus, handler CommandHandler[C]) error {
	var zero C
	name := zero.Name()

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("handler already registered for command %s", name)
	}
	b.handlers[name] = func(cmd Command) error {
		typed, ok := cmd.(C)
		if !ok {
			return fmt.Errorf("command %s has unexpected type %T", name, cmd)
		}
		return handler.Handle(typed)
	}
	return nil
}

// Dispatch sends a command to its registered handler.
func (b *CommandBus) Dispatch(cmd Command) error {
	b.mu.RLock()
	if b.isShuttingDown {
		b.mu.RUnlock()
		return ErrCommandBusShuttingDown
	}
	handler, exists := b.handlers[cmd.Name()]
	if exists {
		b.active.Add(1)
		defer b.active.Done()
	}
	b.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for command %s", cmd.Name())
	}
	return handler(cmd)
}

// Shutdown rejects new commands. In-flight commands keep running; use
// WaitForCompletion to block until they drain.
func (b *CommandBus) Shutdown() {
	b.mu.Lock()
	b.isShuttingDown = true
	b.mu.Unlock()
}

// WaitForCompletion blocks until all active commands have completed.
func (b *CommandBus) WaitForCompletion() {
	b.active.Wait()
}
