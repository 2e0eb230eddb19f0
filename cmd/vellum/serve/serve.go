// Package servecmder provides the serve command, running the HTTP API and MCP
// server over the vault.
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

	"github.com/papercomputeco/vellum/api"
	"github.com/papercomputeco/vellum/api/mcp"
	"github.com/papercomputeco/vellum/cmd/vellum/setup"
	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/logger"
	"github.com/papercomputeco/vellum/pkg/source/fs"
	"github.com/papercomputeco/vellum/pkg/worker"
	"github.com/papercomputeco/vellum/pkg/workspace"
)

type serveCommander struct {
	flags    serveFlags
	watch    bool
	jsonLogs bool
	noChat   bool
	workers  uint
	logFile  string
}

type serveFlags struct {
	listen          string
	provider        string
	baseURL         string
	model           string
	embeddingProv   string
	embeddingTarget string
	embeddingModel  string
	batchSize       int
	summarizer      string
	topK            int
	statePath       string
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagProvider,
	config.FlagBaseURL,
	config.FlagModel,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagBatchSize,
	config.FlagSummarizer,
	config.FlagTopK,
	config.FlagStatePath,
}

const serveLongDesc string = `Run the vellum API server.

Serves semantic search, thread management, streaming chat and index jobs over
HTTP, with an MCP endpoint at /mcp for agents. The vault is the current
directory or the given path.

With --watch, vellum re-indexes the vault whenever files change.

Examples:
  vellum serve
  vellum serve ~/notes --listen :9000 --watch
  vellum serve --json-logs --no-chat
  vellum serve --log-file .vellum/serve.log`

const serveShortDesc string = "Run the vellum API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := setup.Options{FlagKeys: serveFlagKeys, JSONLogs: cmder.jsonLogs}
			if len(args) == 1 {
				opts.Root = args[0]
			}
			ws, log, err := setup.Workspace(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			if cmder.logFile != "" {
				f, err := os.OpenFile(cmder.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
				if err != nil {
					return fmt.Errorf("opening log file: %w", err)
				}
				defer f.Close()
				log = logger.Multi(log, logger.New(logger.WithJSON(true), logger.WithWriter(f)))
			}

			return cmder.run(ctx, ws, log)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.flags.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.flags.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.flags.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.flags.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.flags.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.flags.embeddingTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.flags.embeddingModel)
	config.AddIntFlag(cmd, config.Flags, config.FlagBatchSize, &cmder.flags.batchSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummarizer, &cmder.flags.summarizer)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.flags.topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagStatePath, &cmder.flags.statePath)
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Re-index the vault when files change")
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Emit JSON logs instead of pretty output")
	cmd.Flags().BoolVar(&cmder.noChat, "no-chat", false, "Disable the chat endpoint")
	cmd.Flags().UintVar(&cmder.workers, "workers", 1, "Number of index workers")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, ws *workspace.Workspace, log *slog.Logger) error {
	if err := ws.OpenSource(); err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Pipeline:   ws.Pipeline,
		NumWorkers: c.workers,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Store:   ws.Store,
		Threads: ws.Threads,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiConfig := api.Config{
		ListenAddr: ws.Config.API.Listen,
		Store:      ws.Store,
		Threads:    ws.Threads,
		Pool:       pool,
		State:      ws.State,
		MCP:        mcpServer.Handler(),
	}
	if !c.noChat {
		orchestrator, err := ws.Chat()
		if err != nil {
			log.Warn("chat disabled", "error", err)
		} else {
			apiConfig.Chat = orchestrator
		}
	}

	apiServer, err := api.NewServer(apiConfig, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	log.Info("starting api server",
		"listen", ws.Config.API.Listen,
		"root", ws.Source.Root(),
		"documents", ws.Store.Len(),
		"chat", apiConfig.Chat != nil,
	)

	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if c.watch {
		go func() {
			err := ws.Source.Watch(ctx, fs.DefaultDebounce, log, func() {
				job, err := pool.Submit()
				if err != nil {
					log.Warn("could not queue re-index", "error", err)
					return
				}
				log.Info("vault changed, re-indexing", "job_id", job.ID())
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("watcher error: %w", err)
			}
		}()
	}

	select {
	case err := <-errChan:
		_ = apiServer.Shutdown()
		return err
	case <-ctx.Done():
		log.Info("received signal, shutting down")
	}

	if err := apiServer.Shutdown(); err != nil {
		log.Warn("api server shutdown", "error", err)
	}
	return nil
}
