// Package indexcmder provides the index command for one-shot document indexing.
package indexcmder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/cliui"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/engine"
	"github.com/foliodocs/folio/pkg/indexer"
	"github.com/foliodocs/folio/pkg/logger"
	"github.com/foliodocs/folio/pkg/storage"
)

type indexCommander struct {
	collection string
	sqlitePath string
	storage    string
	vectorProv string
	vectorTgt  string
	chunkSize  uint
	overlap    uint
	debug      bool

	viper  *viper.Viper
	logger *zap.Logger
}

const indexLongDesc string = `Index a document into a collection.

Reads the file, splits it into chunks, embeds each chunk, and stores the
embeddings in the configured vector store. The document is then available
to "folio query".

Examples:
  folio index handbook.md --collection acme
  folio index notes.txt -c acme --chunk-size 500`

const indexShortDesc string = "Index a document into a collection"

var indexFlags = []string{
	config.FlagSQLite,
	config.FlagStorageProv,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
}

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}
	flagSet := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, flagSet, indexFlags)
			cmder.viper = v

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			return cmder.run(args[0])
		},
	}

	config.AddStringFlag(cmd, flagSet, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, flagSet, config.FlagStorageProv, &cmder.storage)
	config.AddStringFlag(cmd, flagSet, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, flagSet, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, flagSet, config.FlagCollection, &cmder.collection)
	config.AddUintFlag(cmd, flagSet, config.FlagChunkSize, &cmder.chunkSize)
	config.AddUintFlag(cmd, flagSet, config.FlagChunkOverlap, &cmder.overlap)

	return cmd
}

func (c *indexCommander) run(path string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	cfg := config.FromViper(c.viper)
	ctx := context.Background()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	eng, err := engine.New(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Initialize(ctx); err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := &storage.Document{
		ID:           uuid.NewString(),
		CollectionID: cfg.VectorStore.Collection,
		Name:         filepath.Base(path),
		Content:      string(content),
		Status:       storage.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := eng.Storage.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("creating document record: %w", err)
	}

	var outcome indexer.Outcome
	err = cliui.Step(os.Stdout, fmt.Sprintf("Indexing %s into %q", doc.Name, doc.CollectionID), func() error {
		var stepErr error
		outcome, stepErr = eng.Indexer.Process(ctx, doc)
		return stepErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n  %s %s\n  %s %d",
		cliui.KeyStyle.Render("Document:"), doc.ID,
		cliui.KeyStyle.Render("Status:"), string(outcome.Status),
		cliui.KeyStyle.Render("Chunks:"), outcome.ChunkCount,
	)
	if outcome.FailedChunks > 0 {
		fmt.Printf(" (%d failed)", outcome.FailedChunks)
	}
	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Took:"), cliui.FormatDuration(outcome.Duration),
	)

	return nil
}
