package vector

import "errors"

var (
	// ErrNotFound is returned when a record is not found in the vector store.
	ErrNotFound = errors.New("record not found")

	// ErrConnection is returned when the vector store backend is unreachable.
	ErrConnection = errors.New("vector store connection failed")

	// ErrSearch is returned when a similarity search fails after the backend
	// was reachable at initialization. Callers may fall back to degraded
	// keyword retrieval on this error.
	ErrSearch = errors.New("similarity search failed")

	// ErrMissingCollection is returned when a search filter carries no
	// collection id.
	ErrMissingCollection = errors.New("filter requires a collection id")
)
