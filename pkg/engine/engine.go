// Package engine assembles the folio runtime from configuration: storage,
// vector store, embedder, generator, event publisher, and the indexing and
// query pipelines. Commands share this assembly instead of wiring providers
// themselves.
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/chunker"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/embeddings"
	embeddingutils "github.com/foliodocs/folio/pkg/embeddings/utils"
	"github.com/foliodocs/folio/pkg/eventstream"
	eventstreamutils "github.com/foliodocs/folio/pkg/eventstream/utils"
	"github.com/foliodocs/folio/pkg/generation"
	generationutils "github.com/foliodocs/folio/pkg/generation/utils"
	"github.com/foliodocs/folio/pkg/indexer"
	"github.com/foliodocs/folio/pkg/query"
	"github.com/foliodocs/folio/pkg/storage"
	"github.com/foliodocs/folio/pkg/storage/inmemory"
	"github.com/foliodocs/folio/pkg/storage/sqlite"
	"github.com/foliodocs/folio/pkg/vector"
	vectorutils "github.com/foliodocs/folio/pkg/vector/utils"
)

// Engine holds the assembled collaborators of a folio process.
type Engine struct {
	Storage   storage.Driver
	Stores    []vector.Store
	Embedder  embeddings.Embedder
	Generator generation.Generator
	Events    eventstream.Publisher

	Indexer *indexer.Pipeline
	Query   *query.Pipeline

	logger *zap.Logger
}

// New assembles an Engine from the given configuration. Initialize is not
// called on the vector stores; callers decide when to reach the backend.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	storer, err := newStorageDriver(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := vectorutils.NewStore(ctx, &vectorutils.NewStoreOpts{
		ProviderType: cfg.VectorStore.Provider,
		TargetURL:    cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType:     cfg.Embedding.Provider,
		TargetURL:        cfg.Embedding.Target,
		Model:            cfg.Embedding.Model,
		APIKeyEnv:        cfg.Embedding.APIKeyEnv,
		MaxRetries:       cfg.Embedding.MaxRetries,
		RetryBaseDelayMS: cfg.Embedding.RetryBaseDelayMS,
		RateLimitRPS:     cfg.Embedding.RateLimitRPS,
		RateLimitBurst:   cfg.Embedding.RateLimitBurst,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	generator, err := generationutils.NewGenerator(&generationutils.NewGeneratorOpts{
		ProviderType: cfg.Generation.Provider,
		TargetURL:    cfg.Generation.Target,
		Model:        cfg.Generation.Model,
		APIKeyEnv:    cfg.Generation.APIKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	events, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      splitBrokers(cfg.Events.Brokers),
		Topic:        cfg.Events.Topic,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	stores := []vector.Store{store}

	indexPipeline, err := indexer.NewPipeline(indexer.Config{
		Chunker:      chunker.New(cfg.Engine.ChunkSize, cfg.Engine.ChunkOverlap),
		Embedder:     embedder,
		Stores:       stores,
		Storage:      storer,
		Events:       events,
		EmbedWorkers: cfg.Engine.EmbedWorkers,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating indexing pipeline: %w", err)
	}

	queryPipeline, err := query.NewPipeline(query.Config{
		Embedder:            embedder,
		Stores:              stores,
		Storage:             storer,
		Generator:           generator,
		MaxSources:          int(cfg.Engine.MaxSources),
		ConfidenceThreshold: cfg.Engine.ConfidenceThreshold,
		ExpansionEnabled:    cfg.Engine.ExpansionEnabled,
		RerankEnabled:       cfg.Engine.RerankEnabled,
		RerankBoostCap:      cfg.Engine.RerankBoostCap,
		MaxContextChars:     int(cfg.Engine.MaxContextChars),
		Logger:              logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating query pipeline: %w", err)
	}

	return &Engine{
		Storage:   storer,
		Stores:    stores,
		Embedder:  embedder,
		Generator: generator,
		Events:    events,
		Indexer:   indexPipeline,
		Query:     queryPipeline,
		logger:    logger,
	}, nil
}

// Initialize prepares every vector store backend.
func (e *Engine) Initialize(ctx context.Context) error {
	for _, store := range e.Stores {
		if err := store.Initialize(ctx); err != nil {
			return fmt.Errorf("initializing vector store: %w", err)
		}
	}
	return nil
}

// Close releases every collaborator. Errors are logged, not returned, so one
// failing close does not block the rest during shutdown.
func (e *Engine) Close() {
	for _, store := range e.Stores {
		if err := store.Close(); err != nil {
			e.logger.Warn("closing vector store", zap.Error(err))
		}
	}
	if err := e.Embedder.Close(); err != nil {
		e.logger.Warn("closing embedder", zap.Error(err))
	}
	if err := e.Events.Close(); err != nil {
		e.logger.Warn("closing event publisher", zap.Error(err))
	}
	if err := e.Storage.Close(); err != nil {
		e.logger.Warn("closing storage driver", zap.Error(err))
	}
}

func newStorageDriver(cfg *config.Config, logger *zap.Logger) (storage.Driver, error) {
	switch cfg.Storage.Provider {
	case "", "memory":
		logger.Info("using in-memory document storage")
		return inmemory.NewDriver(), nil
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			return nil, fmt.Errorf("storage.sqlite_path is required for the sqlite provider")
		}
		driver, err := sqlite.NewDriver(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite storage: %w", err)
		}
		logger.Info("using sqlite document storage", zap.String("path", cfg.Storage.SQLitePath))
		return driver, nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Storage.Provider)
	}
}

func splitBrokers(brokers string) []string {
	if brokers == "" {
		return nil
	}

	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
