// Package statscmder provides the stats command for inspecting collection usage.
package statscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/engine"
	"github.com/foliodocs/folio/pkg/logger"
)

type statsCommander struct {
	collection string
	sqlitePath string
	storage    string
	vectorProv string
	vectorTgt  string
	debug      bool

	viper  *viper.Viper
	logger *zap.Logger
}

const statsLongDesc string = `Show usage statistics for a collection.

Reports document, chunk, and vector counts together with an approximate
storage size and recent query activity.

Examples:
  folio stats --collection acme`

const statsShortDesc string = "Show collection usage statistics"

// recentQueryLimit bounds how many audit records the command lists.
const recentQueryLimit = 5

var statsFlags = []string{
	config.FlagSQLite,
	config.FlagStorageProv,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
}

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}
	flagSet := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, flagSet, statsFlags)
			cmder.viper = v

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, flagSet, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, flagSet, config.FlagStorageProv, &cmder.storage)
	config.AddStringFlag(cmd, flagSet, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, flagSet, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, flagSet, config.FlagCollection, &cmder.collection)

	return cmd
}

func (c *statsCommander) run() error {
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

	collection := cfg.VectorStore.Collection

	fmt.Printf("\n  %s %s\n\n", cliui.KeyStyle.Render("Collection:"), collection)

	docs, err := eng.Storage.ListDocuments(ctx, collection)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	fmt.Printf("  %s %d\n", cliui.KeyStyle.Render("Documents:"), len(docs))

	for _, store := range eng.Stores {
		stats, err := store.CollectionStats(ctx, collection)
		if err != nil {
			fmt.Printf("  %s %v\n", cliui.FailMark, err)
			continue
		}
		fmt.Printf("  %s %d vectors, %d dims, ~%d bytes\n",
			cliui.KeyStyle.Render("Vectors:"),
			stats.VectorCount, stats.Dimensions, stats.SizeBytes,
		)
	}

	queries, err := eng.Storage.ListQueries(ctx, collection, recentQueryLimit)
	if err != nil {
		return fmt.Errorf("listing queries: %w", err)
	}

	if len(queries) > 0 {
		fmt.Printf("\n  %s\n", cliui.KeyStyle.Render("Recent queries:"))
		for _, q := range queries {
			fmt.Printf("    %s (confidence %.2f, %d sources)\n",
				q.Question, q.Confidence, q.SourceCount)
		}
	}

	fmt.Println()
	return nil
}
