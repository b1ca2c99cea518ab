// Package configcmder provides the config command for managing persistent
// folio configuration stored in the .folio/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent folio configuration.

Configuration is stored as config.toml in the .folio/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path,
  api.listen,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  generation.provider, generation.target, generation.model,
  engine.chunk_size, engine.chunk_overlap, engine.max_sources,
  events.provider, events.brokers, events.topic

Use subcommands to get, set, or list configuration values:
  folio config set <key> <value>    Set a configuration value
  folio config get <key>            Get a configuration value
  folio config list                 List all configuration values

Examples:
  folio config set vector_store.provider chroma
  folio config set embedding.model nomic-embed-text
  folio config get vector_store.provider
  folio config list`

const configShortDesc string = "Manage persistent folio configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
