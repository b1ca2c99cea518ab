// Package querycmder provides the query command for asking questions against
// an indexed collection.
package querycmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/engine"
	"github.com/foliodocs/folio/pkg/logger"
	"github.com/foliodocs/folio/pkg/query"
	"github.com/foliodocs/folio/pkg/utils"
)

type queryCommander struct {
	collection string
	sqlitePath string
	storage    string
	vectorProv string
	vectorTgt  string
	maxSources uint
	debug      bool

	viper  *viper.Viper
	logger *zap.Logger
}

const queryLongDesc string = `Ask a question against an indexed collection.

Retrieves the most relevant chunks from the vector store, synthesizes an
answer, and prints it together with the source passages it came from.

Examples:
  folio query "What is the vacation policy?" --collection acme
  folio query "How do refunds work?" -c acme -k 3`

const queryShortDesc string = "Ask a question against a collection"

var queryFlags = []string{
	config.FlagSQLite,
	config.FlagStorageProv,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagMaxSources,
}

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}
	flagSet := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, flagSet, queryFlags)
			cmder.viper = v

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run(strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, flagSet, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, flagSet, config.FlagStorageProv, &cmder.storage)
	config.AddStringFlag(cmd, flagSet, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, flagSet, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, flagSet, config.FlagCollection, &cmder.collection)
	config.AddUintFlag(cmd, flagSet, config.FlagMaxSources, &cmder.maxSources)

	return cmd
}

func (c *queryCommander) run(question string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg := config.FromViper(c.viper)
	ctx := context.Background()

	eng, err := engine.New(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Initialize(ctx); err != nil {
		return err
	}

	answer, err := eng.Query.Query(ctx, question, cfg.VectorStore.Collection, query.Options{})
	if err != nil {
		return err
	}

	fmt.Print(renderAnswer(answer))
	return nil
}

// renderAnswer formats an answer and its sources as markdown and renders it
// for the terminal.
func renderAnswer(answer *query.Answer) string {
	var sb strings.Builder

	sb.WriteString(answer.Text)
	sb.WriteString("\n")

	if len(answer.Sources) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for i, src := range answer.Sources {
			sb.WriteString(fmt.Sprintf("%d. `%s` (chunk %d, score %.2f)\n   %s\n",
				i+1, src.DocumentID, src.ChunkIndex, src.Score,
				utils.Truncate(strings.ReplaceAll(src.Text, "\n", " "), 160),
			))
		}
	}

	sb.WriteString(fmt.Sprintf("\nConfidence: %.2f", answer.Confidence))
	if answer.Degraded {
		sb.WriteString(" (keyword fallback, embedding search unavailable)")
	}
	sb.WriteString("\n")

	rendered, err := cliui.RenderMarkdown(sb.String())
	if err != nil {
		return sb.String()
	}
	return rendered
}
