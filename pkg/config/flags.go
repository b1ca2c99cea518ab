package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --collection
// on "folio index", "folio query", and "folio stats").
type Flag struct {
	// Name is the long flag name (e.g. "collection").
	Name string

	// Shorthand is the one-letter short flag (e.g. "c"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "vector_store.collection").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIListen       = "api-listen"
	FlagSQLite          = "sqlite"
	FlagStorageProv     = "storage-provider"
	FlagVectorStoreProv = "vector-store-provider"
	FlagVectorStoreTgt  = "vector-store-target"
	FlagCollection      = "collection"
	FlagEmbeddingProv   = "embedding-provider"
	FlagEmbeddingTgt    = "embedding-target"
	FlagEmbeddingModel  = "embedding-model"
	FlagEmbeddingDims   = "embedding-dimensions"
	FlagGenerationProv  = "generation-provider"
	FlagGenerationTgt   = "generation-target"
	FlagGenerationModel = "generation-model"
	FlagChunkSize       = "chunk-size"
	FlagChunkOverlap    = "chunk-overlap"
	FlagMaxSources      = "max-sources"
)

// DefaultFlagSet returns the standard flag registry shared by the folio commands.
func DefaultFlagSet() FlagSet {
	return FlagSet{
		FlagAPIListen: {
			Name: "listen", Shorthand: "l",
			ViperKey:    "api.listen",
			Description: "Address for the API server to listen on",
		},
		FlagSQLite: {
			Name: "sqlite", Shorthand: "s",
			ViperKey:    "storage.sqlite_path",
			Description: "Path to the SQLite database for document/chunk records",
		},
		FlagStorageProv: {
			Name:        "storage-provider",
			ViperKey:    "storage.provider",
			Description: "Document storage provider (memory, sqlite)",
		},
		FlagVectorStoreProv: {
			Name:        "vector-store-provider",
			ViperKey:    "vector_store.provider",
			Description: "Vector store provider (memory, chroma, weaviate, sqlitevec, pgvector)",
		},
		FlagVectorStoreTgt: {
			Name:        "vector-store-target",
			ViperKey:    "vector_store.target",
			Description: "Vector store target URL or DSN",
		},
		FlagCollection: {
			Name: "collection", Shorthand: "c",
			ViperKey:    "vector_store.collection",
			Description: "Collection (project) the operation is scoped to",
		},
		FlagEmbeddingProv: {
			Name:        "embedding-provider",
			ViperKey:    "embedding.provider",
			Description: "Embedding provider (ollama, openai)",
		},
		FlagEmbeddingTgt: {
			Name:        "embedding-target",
			ViperKey:    "embedding.target",
			Description: "Embedding provider base URL",
		},
		FlagEmbeddingModel: {
			Name:        "embedding-model",
			ViperKey:    "embedding.model",
			Description: "Embedding model name",
		},
		FlagEmbeddingDims: {
			Name:        "embedding-dimensions",
			ViperKey:    "embedding.dimensions",
			Description: "Embedding vector dimensionality",
		},
		FlagGenerationProv: {
			Name:        "generation-provider",
			ViperKey:    "generation.provider",
			Description: "Answer synthesis provider (extractive, ollama, openai)",
		},
		FlagGenerationTgt: {
			Name:        "generation-target",
			ViperKey:    "generation.target",
			Description: "Generation provider base URL",
		},
		FlagGenerationModel: {
			Name:        "generation-model",
			ViperKey:    "generation.model",
			Description: "Generation model name",
		},
		FlagChunkSize: {
			Name:        "chunk-size",
			ViperKey:    "engine.chunk_size",
			Description: "Maximum chunk size in characters",
		},
		FlagChunkOverlap: {
			Name:        "chunk-overlap",
			ViperKey:    "engine.chunk_overlap",
			Description: "Overlap window between adjacent chunks in characters",
		},
		FlagMaxSources: {
			Name: "max-sources", Shorthand: "k",
			ViperKey:    "engine.max_sources",
			Description: "Maximum number of sources attached to an answer",
		},
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
