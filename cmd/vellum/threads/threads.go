// Package threadscmder provides the threads command for managing
// conversation threads.
package threadscmder

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vellum/cmd/vellum/setup"
	"github.com/papercomputeco/vellum/pkg/cliui"
	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/thread"
	"github.com/papercomputeco/vellum/pkg/utils"
	"github.com/papercomputeco/vellum/pkg/workspace"
)

const threadsLongDesc string = `Manage conversation threads.

Threads are stored in the state database. A thread can be referred to by its
ID, a unique ID prefix, or its exact name.

Examples:
  vellum threads                     List threads, most recent first
  vellum threads new                 Start an empty thread
  vellum threads show garden         Print a thread's messages
  vellum threads rename 3f2a Garden  Rename a thread
  vellum threads clear Garden        Remove a thread's messages
  vellum threads delete Garden       Delete a thread`

const threadsShortDesc string = "Manage conversation threads"

// run opens the workspace for a subcommand and hands it the registry.
func run(cmd *cobra.Command, fn func(out io.Writer, ws *workspace.Workspace) error) error {
	ws, _, err := setup.Workspace(cmd.Context(), cmd, setup.Options{
		FlagKeys: []string{config.FlagStatePath},
		Quiet:    true,
	})
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(cmd.OutOrStdout(), ws)
}

func NewThreadsCmd() *cobra.Command {
	var jsonOut bool
	var statePath string

	cmd := &cobra.Command{
		Use:     "threads",
		Aliases: []string{"thread"},
		Short:   threadsShortDesc,
		Long:    threadsLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(out io.Writer, ws *workspace.Workspace) error {
				return list(out, ws.Threads, jsonOut)
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output threads as JSON")
	def := config.Flags[config.FlagStatePath]
	cmd.PersistentFlags().StringVar(&statePath, def.Name, "", def.Description)

	cmd.AddCommand(newNewCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func list(out io.Writer, threads *thread.Registry, jsonOut bool) error {
	all := threads.List()

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}

	active, _ := threads.Active()
	for _, t := range all {
		marker := " "
		if t.ID == active.ID {
			marker = cliui.SuccessMark
		}
		fmt.Fprintf(out, "  %s %s  %-40s %s %s\n",
			marker,
			cliui.DimStyle.Render(t.ID[:8]),
			cliui.NameStyle.Render(utils.Truncate(t.Name, 40)),
			cliui.KeyStyle.Render(fmt.Sprintf("%3d messages", len(t.Messages))),
			cliui.DimStyle.Render(t.UpdatedAt.Local().Format(time.DateTime)),
		)
	}
	return nil
}

func newNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new [name]",
		Short: "Start an empty thread",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(out io.Writer, ws *workspace.Workspace) error {
				t, err := ws.Threads.Create(cmd.Context())
				if err != nil {
					return err
				}
				if len(args) == 1 {
					if err := ws.Threads.Rename(cmd.Context(), t.ID, args[0]); err != nil {
						return err
					}
					t.Name = args[0]
				}
				fmt.Fprintf(out, "  %s Created %s %s\n", cliui.SuccessMark, cliui.NameStyle.Render(t.Name), cliui.DimStyle.Render(t.ID))
				return nil
			})
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <thread>",
		Short: "Print a thread's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(out io.Writer, ws *workspace.Workspace) error {
				t, err := ws.Threads.Resolve(args[0])
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "\n  %s %s\n\n", cliui.HeaderStyle.Render(t.Name), cliui.DimStyle.Render(t.ID))
				if len(t.Messages) == 0 {
					fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("(no messages)"))
					return nil
				}
				for _, m := range t.Messages {
					role := cliui.KeyStyle.Render("[" + m.Role + "]")
					if m.Role == llm.RoleUser {
						role = cliui.NameStyle.Render("[" + m.Role + "]")
					}
					fmt.Fprintf(out, "  %s %s\n\n", role, m.Content)
				}
				return nil
			})
		},
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <thread> <name>",
		Short: "Rename a thread",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(out io.Writer, ws *workspace.Workspace) error {
				t, err := ws.Threads.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := ws.Threads.Rename(cmd.Context(), t.ID, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s Renamed %s to %s\n", cliui.SuccessMark, cliui.DimStyle.Render(t.Name), cliui.NameStyle.Render(args[1]))
				return nil
			})
		},
	}
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <thread>",
		Short: "Remove a thread's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(out io.Writer, ws *workspace.Workspace) error {
				t, err := ws.Threads.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := ws.Threads.Clear(cmd.Context(), t.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s Cleared %s\n", cliui.SuccessMark, cliui.NameStyle.Render(t.Name))
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <thread>",
		Aliases: []string{"rm"},
		Short:   "Delete a thread",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(out io.Writer, ws *workspace.Workspace) error {
				t, err := ws.Threads.Resolve(args[0])
				if err != nil {
					return err
				}
				if err := ws.Threads.Delete(cmd.Context(), t.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s Deleted %s\n", cliui.SuccessMark, cliui.NameStyle.Render(t.Name))
				return nil
			})
		},
	}
}
