// Package indexcmder provides the index command that brings the vault index
// up to date, once or continuously.
package indexcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/vellum/cmd/vellum/setup"
	"github.com/papercomputeco/vellum/pkg/cliui"
	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/indexer"
	"github.com/papercomputeco/vellum/pkg/source/fs"
	"github.com/papercomputeco/vellum/pkg/workspace"
)

type indexCommander struct {
	flags indexFlags
	watch bool
	prune bool
	quiet bool

	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

type indexFlags struct {
	batchSize      int
	summarizer     string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	statePath      string
}

var indexFlagKeys = []string{
	config.FlagBatchSize,
	config.FlagSummarizer,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagStatePath,
}

const indexLongDesc string = `Index a vault of notes.

Walks the vault (the argument, or indexing.root from config), skips files the
filter excludes and notes whose content has not changed, and embeds the rest
in concurrent batches. The index is saved to the state database after every
run that changed something.

Press Ctrl+C to stop: the batch in flight finishes and is saved.

With --watch, vellum keeps running and re-indexes whenever files under the
vault change. With --prune, notes that were deleted or are now filtered out
are removed from the index first.

Examples:
  vellum index
  vellum index ~/notes --batch-size 10
  vellum index --prune --watch`

const indexShortDesc string = "Index a vault of notes"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index [root]",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := setup.Options{FlagKeys: indexFlagKeys}
			if len(args) == 1 {
				opts.Root = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ws, log, err := setup.Workspace(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer ws.Close()

			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			cmder.logger = log
			return cmder.run(ctx, ws)
		},
	}

	config.AddIntFlag(cmd, config.Flags, config.FlagBatchSize, &cmder.flags.batchSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagSummarizer, &cmder.flags.summarizer)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.flags.embeddingProv)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.flags.embeddingTgt)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.flags.embeddingModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagStatePath, &cmder.flags.statePath)
	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Keep running and re-index on file changes")
	cmd.Flags().BoolVar(&cmder.prune, "prune", false, "Remove deleted and filtered-out notes from the index")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Do not draw the progress bar")

	return cmd
}

func (c *indexCommander) run(ctx context.Context, ws *workspace.Workspace) error {
	if err := ws.OpenSource(); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s %s\n",
		cliui.KeyStyle.Render("Vault:"),
		cliui.ValueStyle.Render(ws.Source.Root()),
	)

	if c.prune {
		removed, err := ws.Pipeline.Prune(ctx)
		if err != nil {
			return fmt.Errorf("pruning index: %w", err)
		}
		fmt.Fprintf(c.out, "  %s Pruned %d notes\n", cliui.SuccessMark, len(removed))
	}

	if err := c.index(ctx, ws); err != nil {
		return err
	}
	if !c.watch || ctx.Err() != nil {
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s\n", cliui.DimStyle.Render("Watching for changes. Ctrl+C to stop."))
	return c.watchLoop(ctx, ws)
}

func (c *indexCommander) index(ctx context.Context, ws *workspace.Workspace) error {
	res, err := ws.Pipeline.Run(ctx, c.progress())
	if c.drawProgress() {
		fmt.Fprintln(c.errOut)
	}
	if err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	c.printResult(res, ws.Store.Len())
	return nil
}

// watchLoop re-indexes after each burst of changes. Changes that arrive
// while a run is in progress coalesce into one follow-up run.
func (c *indexCommander) watchLoop(ctx context.Context, ws *workspace.Workspace) error {
	changed := make(chan struct{}, 1)
	watchErr := make(chan error, 1)

	go func() {
		watchErr <- ws.Source.Watch(ctx, fs.DefaultDebounce, c.logger, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			return err
		case <-changed:
			if c.prune {
				if _, err := ws.Pipeline.Prune(ctx); err != nil {
					c.logger.Warn("pruning index", "error", err)
				}
			}
			if err := c.index(ctx, ws); err != nil {
				c.logger.Error("re-indexing", "error", err)
			}
		}
	}
}

func (c *indexCommander) drawProgress() bool {
	if c.quiet {
		return false
	}
	f, ok := c.errOut.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *indexCommander) progress() indexer.ProgressFunc {
	if !c.drawProgress() {
		return nil
	}
	return func(completed, total int, name string) {
		fmt.Fprint(c.errOut, cliui.ProgressLine(completed, total, name))
	}
}

func (c *indexCommander) printResult(res indexer.Result, documents int) {
	mark := cliui.SuccessMark
	if res.Cancelled {
		mark = cliui.WarnStyle.Render("!")
	}

	fmt.Fprintf(c.out, "  %s %d indexed, %d unchanged, %d skipped of %d %s\n",
		mark,
		res.Indexed,
		res.Unchanged,
		res.Skipped,
		res.Total,
		cliui.StepStyle.Render("("+cliui.FormatDuration(res.Duration)+")"),
	)
	if res.Cancelled {
		fmt.Fprintf(c.out, "  %s\n", cliui.DimStyle.Render("Cancelled. Run again to finish."))
	}
	fmt.Fprintf(c.out, "  %s %d notes in the index\n", cliui.DimStyle.Render("●"), documents)
}
