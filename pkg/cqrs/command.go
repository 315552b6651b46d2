// Package cqrs implements lightweight command and query buses.
// Commands change the state of the system; queries only read it.
// Handlers are registered once at startup and dispatched by message name.
package cqrs

// Command represents a command that changes the state of the system.
// Commands are named with verbs in imperative form (e.g., "ImproveApp").
type Command interface {
	// Name returns the name of the command.
	Name() string
}

// CommandHandler defines the interface for handling commands.
type CommandHandler[C Command] interface {
	// Handle executes the command and returns an error if the command fails.
	Handle(cmd C) error
}
