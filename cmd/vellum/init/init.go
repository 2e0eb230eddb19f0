// Package initcmder provides the init command for initializing a local
// .vellum directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vellum/pkg/cliui"
	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/dotdir"
)

const initLongDesc string = `Initialize a new .vellum/ directory in the current working directory.

Creates a local .vellum/ directory that takes precedence over the default
~/.vellum/ directory for configuration, credentials and the state database.
A vault usually keeps its own .vellum/ at its root.

With --preset, a config.toml is written with defaults for that provider:
  openai      OpenAI chat and embeddings
  anthropic   Anthropic chat with local embeddings
  ollama      Ollama chat and embeddings on localhost

Examples:
  vellum init
  vellum init --preset ollama
  vellum init --preset anthropic --root ~/notes`

const initShortDesc string = "Initialize a local .vellum/ directory"

type initCommander struct {
	preset string
	root   string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
		ValidArgsFunction: cobra.NoFileCompletions,
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().StringVar(&cmder.root, "root", "", "Vault directory to index (default: current directory)")

	return cmd
}

func (c *initCommander) run(out io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking .vellum directory: %w", err)
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .vellum directory: %w", err)
		}
		fmt.Fprintf(out, "Initialized .vellum directory: %s\n", dir)
	}

	if c.preset == "" && c.root == "" {
		return nil
	}
	return c.writeConfig(out, dir)
}

func (c *initCommander) writeConfig(out io.Writer, dir string) error {
	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var cfg *config.Config
	if c.preset != "" {
		cfg, err = config.PresetConfig(c.preset)
	} else {
		cfg, err = cfger.LoadConfig()
	}
	if err != nil {
		return err
	}

	if c.root != "" {
		root, err := filepath.Abs(c.root)
		if err != nil {
			return fmt.Errorf("resolving root: %w", err)
		}
		cfg.Indexing.Root = root
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Wrote %s\n", cliui.SuccessMark, cliui.DimStyle.Render(cfger.GetTarget()))
	return nil
}
