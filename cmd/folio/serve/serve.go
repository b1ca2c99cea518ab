// Package servecmder provides the serve command for running the folio API server.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/api"
	"github.com/foliodocs/folio/pkg/config"
	"github.com/foliodocs/folio/pkg/engine"
	"github.com/foliodocs/folio/pkg/indexer/worker"
	"github.com/foliodocs/folio/pkg/logger"
)

type serveCommander struct {
	listen     string
	sqlitePath string
	storage    string
	vectorProv string
	vectorTgt  string
	collection string
	debug      bool

	viper  *viper.Viper
	logger *zap.Logger
}

const serveLongDesc string = `Run the folio API server.

Accepts document uploads, indexes them asynchronously in a background
worker pool, and answers questions over HTTP:
  POST /v1/documents              Upload a document for indexing
  GET  /v1/documents/:id          Check indexing status
  POST /v1/query                  Ask a question
  GET  /v1/collections/:id/stats  Collection usage`

const serveShortDesc string = "Run the folio API server"

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagStorageProv,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}
	flagSet := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, flagSet, serveFlags)
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

	config.AddStringFlag(cmd, flagSet, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, flagSet, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, flagSet, config.FlagStorageProv, &cmder.storage)
	config.AddStringFlag(cmd, flagSet, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, flagSet, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, flagSet, config.FlagCollection, &cmder.collection)

	return cmd
}

func (c *serveCommander) run() error {
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

	pool, err := worker.NewPool(&worker.Config{
		Pipeline: eng.Indexer,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	apiConfig := api.Config{
		ListenAddr:        cfg.API.Listen,
		DefaultCollection: cfg.VectorStore.Collection,
	}

	server, err := api.NewServer(apiConfig, eng.Storage, pool, eng.Query, eng.Stores, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}
