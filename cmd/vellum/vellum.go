// Package vellumcmder
package vellumcmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/vellum/cmd/vellum/auth"
	chatcmder "github.com/papercomputeco/vellum/cmd/vellum/chat"
	configcmder "github.com/papercomputeco/vellum/cmd/vellum/config"
	indexcmder "github.com/papercomputeco/vellum/cmd/vellum/index"
	initcmder "github.com/papercomputeco/vellum/cmd/vellum/init"
	searchcmder "github.com/papercomputeco/vellum/cmd/vellum/search"
	servecmder "github.com/papercomputeco/vellum/cmd/vellum/serve"
	statecmder "github.com/papercomputeco/vellum/cmd/vellum/state"
	threadscmder "github.com/papercomputeco/vellum/cmd/vellum/threads"
	versioncmder "github.com/papercomputeco/vellum/cmd/version"
)

const vellumLongDesc string = `Vellum answers questions about your notes.

It indexes a vault of markdown and text files, retrieves the notes most
relevant to a question and streams an answer from a language model that
cites them.

Get started:
  vellum init --preset openai    Create a local .vellum/ directory
  vellum auth openai             Store an API key
  vellum index ~/notes           Index a vault
  vellum chat                    Ask questions in the active thread
  vellum serve                   Run the HTTP API and MCP server`

const vellumShortDesc string = "Vellum - question answering over your notes"

func NewVellumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "vellum",
		Short:         vellumShortDesc,
		Long:          vellumLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .vellum/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(threadscmder.NewThreadsCmd())
	cmd.AddCommand(statecmder.NewStateCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
