// Package servecmder provides the serve command which runs the memoir HTTP API,
// the MCP endpoint and the background extraction workers.
package servecmder

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/memoir/api"
	"github.com/papercomputeco/memoir/api/mcp"
	"github.com/papercomputeco/memoir/pkg/app"
	"github.com/papercomputeco/memoir/pkg/config"
	"github.com/papercomputeco/memoir/pkg/dotdir"
	"github.com/papercomputeco/memoir/pkg/logger"
)

type ServeCommander struct {
	configDir string
	debug     bool
	noMCP     bool
	logger    *slog.Logger
}

const serveLongDesc string = `Run the memoir server.

The server exposes:
  /v1/turns             Feed conversation turns for extraction
  /v1/organize          Trigger the organizer and follow its progress
  /v1/profile           Read the profile
  /v1/<category>        Curate attributes, memories, goals and requests
  /mcp                  MCP tools for agents (disable with --no-mcp)
  /metrics              Prometheus metrics

Logs go to stdout and, as JSON, to memoir.log in the .memoir/ directory.`

const serveShortDesc string = "Run the memoir server"

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagWorkers,
	config.FlagQueueSize,
	config.FlagMaxItems,
	config.FlagEventStream,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd)
		},
	}

	var listen, eventStream, brokers, topic string
	var workers, queueSize, maxItems uint
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &listen)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &workers)
	config.AddUintFlag(cmd, config.Flags, config.FlagQueueSize, &queueSize)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxItems, &maxItems)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStream, &eventStream)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &topic)
	app.AddGenerationFlags(cmd)
	app.AddStorageFlags(cmd)
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")

	return cmd
}

func (c *ServeCommander) run(cmd *cobra.Command) error {
	logPath, err := dotdir.NewManager().Path(c.configDir, app.LogFile)
	if err != nil {
		return err
	}
	fileLogger, logFile, err := logger.File(logPath, logger.WithDebug(c.debug))
	if err != nil {
		return err
	}
	defer logFile.Close()

	c.logger = logger.Multi(
		logger.New(logger.WithDebug(c.debug), logger.WithPretty(true)),
		fileLogger,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	keys := append(append(append([]string{}, serveFlags...), app.GenerationFlags...), app.StorageFlags...)
	a, err := app.FromCommand(ctx, cmd, keys, app.Options{Logger: c.logger, StartPool: true})
	if err != nil {
		return err
	}
	defer a.Close()

	recent := int(a.Config.Chat.RecentMemories)
	apiConfig := api.Config{
		ListenAddr:     a.Config.API.Listen,
		Extractor:      a.Extractor,
		Queue:          a.Pool,
		Organizer:      a.Organizer,
		Metrics:        a.Metrics,
		RecentEpisodes: recent,
	}

	if !c.noMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Store:          a.Store,
			RecentEpisodes: recent,
			Logger:         c.logger.With("component", "mcp"),
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	server, err := api.NewServer(apiConfig, a.Store, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("starting memoir server",
		"listen", a.Config.API.Listen,
		"storage", a.Config.Storage.Provider,
		"generation", a.Config.Generation.Provider,
		"workers", a.Config.Extraction.Workers,
		"mcp", !c.noMCP,
		"log_file", logPath,
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Run()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.logger.Info("received signal, shutting down")
	}

	if err := server.Shutdown(); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	if err := <-errChan; err != nil {
		return fmt.Errorf("API server error: %w", err)
	}
	return nil
}
