// Package servecmder provides the serve command that runs the ragline API server.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/ragline/api"
	"github.com/papercomputeco/ragline/pkg/config"
	"github.com/papercomputeco/ragline/pkg/logger"
)

type serveCommander struct {
	flags serveFlags

	debug   bool
	logJSON bool
	logFile string
	noMCP   bool

	viper  *viper.Viper
	logger *slog.Logger
}

// serveFlags receive flag values; viper resolves the effective config.
type serveFlags struct {
	listen            string
	retrievalProvider string
	retrievalTarget   string
	retrievalTable    string
	topK              uint
	embeddingProvider string
	embeddingTarget   string
	embeddingModel    string
	embeddingDims     uint
	generationProv    string
	generationTarget  string
	generationModel   string
	historyProvider   string
	historyTarget     string
	eventsProvider    string
	eventsBrokers     string
}

var registeredFlags = []string{
	config.FlagAPIListen,
	config.FlagRetrievalProv,
	config.FlagRetrievalTgt,
	config.FlagRetrievalTable,
	config.FlagTopK,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagGenerationProv,
	config.FlagGenerationTgt,
	config.FlagGenerationMdl,
	config.FlagHistoryProv,
	config.FlagHistoryTgt,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
}

const serveLongDesc string = `Run the ragline API server.

The server wires the configured document store, embedding provider, generation
provider, history store and event publisher into a query engine and serves:
  POST /v1/query                   Answer a question
  POST /v1/query/stream            Answer a question as server-sent events
  GET  /v1/history/:id             Read a conversation
  GET  /v1/documents               Page through stored chunks
  /mcp                             MCP tools (ask, history)

Settings come from flags, RAGLINE_* environment variables (including a .env
file), config.toml in the .ragline/ directory, and built-in defaults, in that
order of precedence.

Examples:
  ragline serve
  ragline serve --retrieval-provider sqlite --retrieval-target ./docs.db
  ragline serve --generation-provider ollama --generation-target http://localhost:11434 -m llama3.2`

const serveShortDesc string = "Run the ragline API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ServeFlags, registeredFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAPIListen, &f.listen)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRetrievalProv, &f.retrievalProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRetrievalTgt, &f.retrievalTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRetrievalTable, &f.retrievalTable)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagTopK, &f.topK)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingProv, &f.embeddingProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, config.ServeFlags, config.FlagEmbeddingDims, &f.embeddingDims)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagGenerationProv, &f.generationProv)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagGenerationTgt, &f.generationTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagGenerationMdl, &f.generationModel)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagHistoryProv, &f.historyProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagHistoryTgt, &f.historyTarget)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsProv, &f.eventsProvider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagEventsBrokers, &f.eventsBrokers)

	cmd.Flags().BoolVar(&cmder.logJSON, "log-json", false, "Write logs as JSON instead of pretty text")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the /mcp endpoint")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.logJSON),
		logger.WithPretty(!c.logJSON),
	)

	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithWriter(f),
		))
	}

	cfg := config.FromViper(c.viper)

	components, err := NewComponents(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer components.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		DisableMCP: c.noMCP,
	}, components.Engine, c.logger)
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
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		if err := server.Shutdown(); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutting down API server: %w", err)
		}
		return nil
	}
}
