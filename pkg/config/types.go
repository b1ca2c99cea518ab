package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent folio configuration stored as config.toml
// in the .folio/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Generation  GenerationConfig  `toml:"generation"`
	Engine      EngineConfig      `toml:"engine"`
	Events      EventsConfig      `toml:"events"`
}

// StorageConfig holds document/chunk persistence settings.
type StorageConfig struct {
	Provider   string `toml:"provider,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings, including the retry and
// rate-limit policy applied to outbound embedding calls.
type EmbeddingConfig struct {
	Provider         string  `toml:"provider,omitempty"`
	Target           string  `toml:"target,omitempty"`
	Model            string  `toml:"model,omitempty"`
	APIKeyEnv        string  `toml:"api_key_env,omitempty"`
	Dimensions       uint    `toml:"dimensions,omitempty"`
	MaxRetries       uint    `toml:"max_retries,omitempty"`
	RetryBaseDelayMS uint    `toml:"retry_base_delay_ms,omitempty"`
	RateLimitRPS     float64 `toml:"rate_limit_rps,omitempty"`
	RateLimitBurst   uint    `toml:"rate_limit_burst,omitempty"`
}

// GenerationConfig holds answer-synthesis provider settings.
type GenerationConfig struct {
	Provider  string `toml:"provider,omitempty"`
	Target    string `toml:"target,omitempty"`
	Model     string `toml:"model,omitempty"`
	APIKeyEnv string `toml:"api_key_env,omitempty"`
}

// EngineConfig holds the numeric knobs of the indexing and query pipelines.
// These are runtime configuration, not constants.
type EngineConfig struct {
	ChunkSize           uint    `toml:"chunk_size,omitempty"`
	ChunkOverlap        uint    `toml:"chunk_overlap,omitempty"`
	MaxSources          uint    `toml:"max_sources,omitempty"`
	ConfidenceThreshold float64 `toml:"confidence_threshold,omitempty"`
	ExpansionEnabled    bool    `toml:"expansion_enabled"`
	RerankEnabled       bool    `toml:"rerank_enabled"`
	RerankBoostCap      float64 `toml:"rerank_boost_cap,omitempty"`
	MaxContextChars     uint    `toml:"max_context_chars,omitempty"`
	EmbedWorkers        uint    `toml:"embed_workers,omitempty"`
}

// EventsConfig holds event stream publisher settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.api_key_env": {
		get: func(c *Config) string { return c.Embedding.APIKeyEnv },
		set: func(c *Config, v string) error { c.Embedding.APIKeyEnv = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string { return formatUint(c.Embedding.Dimensions) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "embedding.dimensions")
			if err != nil {
				return err
			}
			c.Embedding.Dimensions = n
			return nil
		},
	},
	"embedding.max_retries": {
		get: func(c *Config) string { return formatUint(c.Embedding.MaxRetries) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "embedding.max_retries")
			if err != nil {
				return err
			}
			c.Embedding.MaxRetries = n
			return nil
		},
	},
	"embedding.retry_base_delay_ms": {
		get: func(c *Config) string { return formatUint(c.Embedding.RetryBaseDelayMS) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "embedding.retry_base_delay_ms")
			if err != nil {
				return err
			}
			c.Embedding.RetryBaseDelayMS = n
			return nil
		},
	},
	"embedding.rate_limit_rps": {
		get: func(c *Config) string { return formatFloat(c.Embedding.RateLimitRPS) },
		set: func(c *Config, v string) error {
			f, err := parseFloat(v, "embedding.rate_limit_rps")
			if err != nil {
				return err
			}
			c.Embedding.RateLimitRPS = f
			return nil
		},
	},
	"embedding.rate_limit_burst": {
		get: func(c *Config) string { return formatUint(c.Embedding.RateLimitBurst) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "embedding.rate_limit_burst")
			if err != nil {
				return err
			}
			c.Embedding.RateLimitBurst = n
			return nil
		},
	},
	"generation.provider": {
		get: func(c *Config) string { return c.Generation.Provider },
		set: func(c *Config, v string) error { c.Generation.Provider = v; return nil },
	},
	"generation.target": {
		get: func(c *Config) string { return c.Generation.Target },
		set: func(c *Config, v string) error { c.Generation.Target = v; return nil },
	},
	"generation.model": {
		get: func(c *Config) string { return c.Generation.Model },
		set: func(c *Config, v string) error { c.Generation.Model = v; return nil },
	},
	"generation.api_key_env": {
		get: func(c *Config) string { return c.Generation.APIKeyEnv },
		set: func(c *Config, v string) error { c.Generation.APIKeyEnv = v; return nil },
	},
	"engine.chunk_size": {
		get: func(c *Config) string { return formatUint(c.Engine.ChunkSize) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "engine.chunk_size")
			if err != nil {
				return err
			}
			c.Engine.ChunkSize = n
			return nil
		},
	},
	"engine.chunk_overlap": {
		get: func(c *Config) string { return formatUint(c.Engine.ChunkOverlap) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "engine.chunk_overlap")
			if err != nil {
				return err
			}
			c.Engine.ChunkOverlap = n
			return nil
		},
	},
	"engine.max_sources": {
		get: func(c *Config) string { return formatUint(c.Engine.MaxSources) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "engine.max_sources")
			if err != nil {
				return err
			}
			c.Engine.MaxSources = n
			return nil
		},
	},
	"engine.confidence_threshold": {
		get: func(c *Config) string { return formatFloat(c.Engine.ConfidenceThreshold) },
		set: func(c *Config, v string) error {
			f, err := parseFloat(v, "engine.confidence_threshold")
			if err != nil {
				return err
			}
			c.Engine.ConfidenceThreshold = f
			return nil
		},
	},
	"engine.expansion_enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Engine.ExpansionEnabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for engine.expansion_enabled: %w", err)
			}
			c.Engine.ExpansionEnabled = b
			return nil
		},
	},
	"engine.rerank_enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Engine.RerankEnabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for engine.rerank_enabled: %w", err)
			}
			c.Engine.RerankEnabled = b
			return nil
		},
	},
	"engine.rerank_boost_cap": {
		get: func(c *Config) string { return formatFloat(c.Engine.RerankBoostCap) },
		set: func(c *Config, v string) error {
			f, err := parseFloat(v, "engine.rerank_boost_cap")
			if err != nil {
				return err
			}
			c.Engine.RerankBoostCap = f
			return nil
		},
	},
	"engine.max_context_chars": {
		get: func(c *Config) string { return formatUint(c.Engine.MaxContextChars) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "engine.max_context_chars")
			if err != nil {
				return err
			}
			c.Engine.MaxContextChars = n
			return nil
		},
	},
	"engine.embed_workers": {
		get: func(c *Config) string { return formatUint(c.Engine.EmbedWorkers) },
		set: func(c *Config, v string) error {
			n, err := parseUint(v, "engine.embed_workers")
			if err != nil {
				return err
			}
			c.Engine.EmbedWorkers = n
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

func formatUint(n uint) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(n), 10)
}

func parseUint(v, key string) (uint, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return uint(n), nil
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(v, key string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return f, nil
}
