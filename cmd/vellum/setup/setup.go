// Package setup turns the persistent and registered flags of a vellum
// command into an effective configuration, a logger and an open workspace.
package setup

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/dotdir"
	"github.com/papercomputeco/vellum/pkg/logger"
	"github.com/papercomputeco/vellum/pkg/workspace"
)

// Options describe how a command wants its configuration assembled.
type Options struct {
	// FlagKeys are the config.Flags registry keys the command registered.
	FlagKeys []string

	// Root overrides indexing.root when non-empty, typically from a
	// positional argument.
	Root string

	// JSONLogs selects the JSON handler instead of the pretty one.
	JSONLogs bool

	// Quiet raises the level to Warn unless --debug is set, for commands
	// whose output is the answer itself.
	Quiet bool
}

// Config resolves the effective configuration for cmd: flags, then
// VELLUM_* environment, then config.toml, then defaults. An unset vault root
// resolves to the directory holding .vellum/ when there is one. Stored credentials
// are loaded into the environment first so VELLUM_ keys in the .env file
// take part.
func Config(cmd *cobra.Command, opts Options) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	workspace.LoadEnv(cfger.GetTargetDir())

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, opts.FlagKeys)

	cfg := config.FromViper(v)
	cfg.Storage.StatePath = cfger.StatePath(cfg)
	switch {
	case opts.Root != "":
		cfg.Indexing.Root = opts.Root
	case cfg.Indexing.Root == "" || cfg.Indexing.Root == ".":
		// Inside a vault, "." means the vault root rather than wherever
		// the command happens to run.
		if root := dotdir.VaultRoot(cfger.GetTargetDir()); root != "" {
			cfg.Indexing.Root = root
		}
	}
	return cfg, nil
}

// Logger builds the command logger from the persistent --debug flag. Logs
// go to stderr so they never mix with answers on stdout.
func Logger(cmd *cobra.Command, opts Options) (*slog.Logger, error) {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, fmt.Errorf("could not get debug flag: %w", err)
	}
	level := slog.LevelInfo
	switch {
	case debug:
		level = slog.LevelDebug
	case opts.Quiet:
		level = slog.LevelWarn
	}
	return logger.New(
		logger.WithLevel(level),
		logger.WithPretty(!opts.JSONLogs),
		logger.WithJSON(opts.JSONLogs),
		logger.WithWriter(os.Stderr),
	), nil
}

// Workspace resolves configuration and a logger and opens the workspace.
// Callers must Close the returned workspace.
func Workspace(ctx context.Context, cmd *cobra.Command, opts Options) (*workspace.Workspace, *slog.Logger, error) {
	log, err := Logger(cmd, opts)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := Config(cmd, opts)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("effective config",
		"provider", cfg.Provider.Type,
		"model", cfg.Provider.Model,
		"embedding", cfg.Embedding.Provider,
		"root", cfg.Indexing.Root,
		"state", cfg.Storage.StatePath,
	)

	ws, err := workspace.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return ws, log, nil
}
