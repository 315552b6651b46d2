package cqrs

// Query represents a request for information that does not change the state
// of the system. Queries are named with verbs in present tense (e.g., "GetApp").
type Query interface {
	// Name returns the name of the query.
	Name() string
}

// QueryHandler defines the interface for handling queries.
type QueryHandler[Q Query, R any] interface {
	// Handle executes the query and returns the result or an error.
	Handle(query Q) (R, error)
}
