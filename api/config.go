// Package api provides the HTTP API server for ingesting documents and
// answering questions.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8084")
	ListenAddr string

	// DefaultCollection is the collection used when a request names none.
	DefaultCollection string
}
