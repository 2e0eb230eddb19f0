// Package configcmder provides the config command for managing persistent
// vellum configuration stored in the .vellum/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vellum/pkg/cliui"
	"github.com/papercomputeco/vellum/pkg/config"
)

const configLongDesc string = `Manage persistent vellum configuration.

Configuration is stored as config.toml in the .vellum/ directory and provides
default values for command flags. VELLUM_* environment variables override
the file, and CLI flags override both.

Keys use dotted notation matching the TOML section structure:
  provider.type, provider.base_url, provider.model, provider.api_key,
  provider.max_tokens,
  embedding.provider, embedding.target, embedding.model, embedding.max_input,
  filter.blacklist, filter.extensions, filter.folders,
  indexing.root, indexing.batch_size, indexing.summarizer,
  indexing.summary_length,
  retrieval.top_k,
  storage.state_path,
  api.listen

List keys take comma-separated values.

Examples:
  vellum config set provider.model gpt-4o
  vellum config set filter.folders projects,journal
  vellum config get retrieval.top_k
  vellum config list`

const configShortDesc string = "Manage persistent vellum configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(out io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(out, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
