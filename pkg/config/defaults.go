package config

const (
	defaultStorageProvider = "memory"

	defaultAPIListen = ":8084"

	defaultVectorProvider   = "memory"
	defaultVectorCollection = "folio"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768
	defaultEmbeddingRetries    = 3
	defaultRetryBaseDelayMS    = 250
	defaultRateLimitRPS        = 10
	defaultRateLimitBurst      = 20

	defaultGenerationProvider = "extractive"

	defaultChunkSize           = 1000
	defaultChunkOverlap        = 200
	defaultMaxSources          = 5
	defaultConfidenceThreshold = 0.6
	defaultRerankBoostCap      = 2.0
	defaultMaxContextChars     = 4000
	defaultEmbedWorkers        = 4

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "folio.documents"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:         defaultEmbeddingProvider,
			Target:           defaultEmbeddingTarget,
			Model:            defaultEmbeddingModel,
			Dimensions:       defaultEmbeddingDimensions,
			MaxRetries:       defaultEmbeddingRetries,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
			RateLimitRPS:     defaultRateLimitRPS,
			RateLimitBurst:   defaultRateLimitBurst,
		},
		Generation: GenerationConfig{
			Provider: defaultGenerationProvider,
			Target:   defaultEmbeddingTarget,
		},
		Engine: EngineConfig{
			ChunkSize:           defaultChunkSize,
			ChunkOverlap:        defaultChunkOverlap,
			MaxSources:          defaultMaxSources,
			ConfidenceThreshold: defaultConfidenceThreshold,
			ExpansionEnabled:    true,
			RerankEnabled:       true,
			RerankBoostCap:      defaultRerankBoostCap,
			MaxContextChars:     defaultMaxContextChars,
			EmbedWorkers:        defaultEmbedWorkers,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
