package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/indexer/worker"
	"github.com/foliodocs/folio/pkg/query"
	"github.com/foliodocs/folio/pkg/storage"
	"github.com/foliodocs/folio/pkg/vector"
)

// Server is the API server for ingesting documents and querying collections.
type Server struct {
	config  Config
	storer  storage.Driver
	pool    *worker.Pool
	queries *query.Pipeline
	stores  []vector.Store
	logger  *zap.Logger
	app     *fiber.App
}

// NewServer creates a new API server. Collaborators are injected so they can
// be shared with the CLI's one-shot commands.
func NewServer(config Config, storer storage.Driver, pool *worker.Pool, queries *query.Pipeline, stores []vector.Store, logger *zap.Logger) (*Server, error) {
	if storer == nil {
		return nil, fmt.Errorf("storage driver is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("worker pool is required")
	}
	if queries == nil {
		return nil, fmt.Errorf("query pipeline is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		storer:  storer,
		pool:    pool,
		queries: queries,
		stores:  stores,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/documents", s.handleCreateDocument)
	app.Get("/v1/documents/:id", s.handleGetDocument)
	app.Post("/v1/query", s.handleQuery)
	app.Get("/v1/collections/:id/stats", s.handleCollectionStats)

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
