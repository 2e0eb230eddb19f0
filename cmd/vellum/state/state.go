// Package statecmder provides the state command for inspecting and exporting
// the state database.
package statecmder

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vellum/cmd/vellum/setup"
	"github.com/papercomputeco/vellum/pkg/cliui"
	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/workspace"
)

const stateLongDesc string = `Inspect and export the state database.

The state database holds three sections: the effective settings, the vector
index snapshot and the conversation threads.

Examples:
  vellum state                       List the stored sections
  vellum state export                Print the full state as JSON
  vellum state export -o backup.json Write it to a file`

const stateShortDesc string = "Inspect and export the state database"

func open(cmd *cobra.Command) (*workspace.Workspace, error) {
	ws, _, err := setup.Workspace(cmd.Context(), cmd, setup.Options{
		FlagKeys: []string{config.FlagStatePath},
		Quiet:    true,
	})
	return ws, err
}

func NewStateCmd() *cobra.Command {
	var statePath string

	cmd := &cobra.Command{
		Use:   "state",
		Short: stateShortDesc,
		Long:  stateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := open(cmd)
			if err != nil {
				return err
			}
			defer ws.Close()
			return listSections(cmd, ws)
		},
	}

	def := config.Flags[config.FlagStatePath]
	cmd.PersistentFlags().StringVar(&statePath, def.Name, "", def.Description)

	cmd.AddCommand(newExportCmd())

	return cmd
}

func listSections(cmd *cobra.Command, ws *workspace.Workspace) error {
	out := cmd.OutOrStdout()

	sections, err := ws.State.Sections(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("State:"),
		cliui.ValueStyle.Render(stateLabel(ws.Config.Storage.StatePath)),
	)
	for _, s := range sections {
		fmt.Fprintf(out, "  %s %s\n", cliui.SuccessMark, cliui.NameStyle.Render(s))
	}
	fmt.Fprintf(out, "\n  %s %d notes, %d threads\n\n",
		cliui.DimStyle.Render("●"),
		ws.Store.Len(),
		len(ws.Threads.List()),
	)
	return nil
}

func stateLabel(path string) string {
	if path == "" {
		return "in-memory"
	}
	return path
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the full state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := open(cmd)
			if err != nil {
				return err
			}
			defer ws.Close()

			data, err := storage.Export(cmd.Context(), ws.State)
			if err != nil {
				return fmt.Errorf("exporting state: %w", err)
			}

			if output == "" || output == "-" {
				return write(cmd.OutOrStdout(), data)
			}

			if err := os.WriteFile(output, append(data, '\n'), 0o600); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s Wrote %s\n", cliui.SuccessMark, cliui.DimStyle.Render(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	return cmd
}

func write(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
