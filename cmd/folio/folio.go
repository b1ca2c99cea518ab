// Package foliocmder
package foliocmder

import (
	configcmder "github.com/foliodocs/folio/cmd/folio/config"
	indexcmder "github.com/foliodocs/folio/cmd/folio/index"
	initcmder "github.com/foliodocs/folio/cmd/folio/init"
	querycmder "github.com/foliodocs/folio/cmd/folio/query"
	servecmder "github.com/foliodocs/folio/cmd/folio/serve"
	statscmder "github.com/foliodocs/folio/cmd/folio/stats"
	versioncmder "github.com/foliodocs/folio/cmd/version"
	"github.com/spf13/cobra"
)

const folioLongDesc string = `Folio is a document question-answering engine.

Index documents into collections, then ask questions and get answers
backed by the source passages they came from:
  folio index <file>      Index a document into a collection
  folio query <question>  Ask a question against a collection
  folio serve             Run the HTTP API server`

const folioShortDesc string = "Folio - Document Question Answering"

func NewFolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folio",
		Short: folioShortDesc,
		Long:  folioLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .folio/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
