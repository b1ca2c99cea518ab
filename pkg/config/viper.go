package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/foliodocs/folio/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the FOLIO_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (FOLIO_API_LISTEN, FOLIO_ENGINE_CHUNK_SIZE, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: FOLIO_API_LISTEN, FOLIO_VECTOR_STORE_TARGET, etc.
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)
	v.SetDefault("vector_store.collection", d.VectorStore.Collection)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key_env", d.Embedding.APIKeyEnv)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.max_retries", d.Embedding.MaxRetries)
	v.SetDefault("embedding.retry_base_delay_ms", d.Embedding.RetryBaseDelayMS)
	v.SetDefault("embedding.rate_limit_rps", d.Embedding.RateLimitRPS)
	v.SetDefault("embedding.rate_limit_burst", d.Embedding.RateLimitBurst)

	// Generation
	v.SetDefault("generation.provider", d.Generation.Provider)
	v.SetDefault("generation.target", d.Generation.Target)
	v.SetDefault("generation.model", d.Generation.Model)
	v.SetDefault("generation.api_key_env", d.Generation.APIKeyEnv)

	// Engine knobs
	v.SetDefault("engine.chunk_size", d.Engine.ChunkSize)
	v.SetDefault("engine.chunk_overlap", d.Engine.ChunkOverlap)
	v.SetDefault("engine.max_sources", d.Engine.MaxSources)
	v.SetDefault("engine.confidence_threshold", d.Engine.ConfidenceThreshold)
	v.SetDefault("engine.expansion_enabled", d.Engine.ExpansionEnabled)
	v.SetDefault("engine.rerank_enabled", d.Engine.RerankEnabled)
	v.SetDefault("engine.rerank_boost_cap", d.Engine.RerankBoostCap)
	v.SetDefault("engine.max_context_chars", d.Engine.MaxContextChars)
	v.SetDefault("engine.embed_workers", d.Engine.EmbedWorkers)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}

// FromViper materializes a Config from the viper instance, honoring the full
// precedence chain.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			Provider:   v.GetString("storage.provider"),
			SQLitePath: v.GetString("storage.sqlite_path"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		VectorStore: VectorStoreConfig{
			Provider:   v.GetString("vector_store.provider"),
			Target:     v.GetString("vector_store.target"),
			Collection: v.GetString("vector_store.collection"),
		},
		Embedding: EmbeddingConfig{
			Provider:         v.GetString("embedding.provider"),
			Target:           v.GetString("embedding.target"),
			Model:            v.GetString("embedding.model"),
			APIKeyEnv:        v.GetString("embedding.api_key_env"),
			Dimensions:       v.GetUint("embedding.dimensions"),
			MaxRetries:       v.GetUint("embedding.max_retries"),
			RetryBaseDelayMS: v.GetUint("embedding.retry_base_delay_ms"),
			RateLimitRPS:     v.GetFloat64("embedding.rate_limit_rps"),
			RateLimitBurst:   v.GetUint("embedding.rate_limit_burst"),
		},
		Generation: GenerationConfig{
			Provider:  v.GetString("generation.provider"),
			Target:    v.GetString("generation.target"),
			Model:     v.GetString("generation.model"),
			APIKeyEnv: v.GetString("generation.api_key_env"),
		},
		Engine: EngineConfig{
			ChunkSize:           v.GetUint("engine.chunk_size"),
			ChunkOverlap:        v.GetUint("engine.chunk_overlap"),
			MaxSources:          v.GetUint("engine.max_sources"),
			ConfidenceThreshold: v.GetFloat64("engine.confidence_threshold"),
			ExpansionEnabled:    v.GetBool("engine.expansion_enabled"),
			RerankEnabled:       v.GetBool("engine.rerank_enabled"),
			RerankBoostCap:      v.GetFloat64("engine.rerank_boost_cap"),
			MaxContextChars:     v.GetUint("engine.max_context_chars"),
			EmbedWorkers:        v.GetUint("engine.embed_workers"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
	}
}
