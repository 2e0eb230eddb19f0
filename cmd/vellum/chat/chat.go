// Package chatcmder provides the chat command for asking questions about the
// vault in a conversation thread.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/vellum/cmd/vellum/setup"
	"github.com/papercomputeco/vellum/pkg/chat"
	"github.com/papercomputeco/vellum/pkg/cliui"
	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/thread"
	"github.com/papercomputeco/vellum/pkg/utils"
	"github.com/papercomputeco/vellum/pkg/workspace"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("vellum> ")
)

type chatCommander struct {
	flags     chatFlags
	threadRef string
	newThread bool
	raw       bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	ws       *workspace.Workspace
	chat     *chat.Orchestrator
	threadID string
}

type chatFlags struct {
	provider  string
	baseURL   string
	model     string
	topK      int
	statePath string
}

var chatFlagKeys = []string{
	config.FlagProvider,
	config.FlagBaseURL,
	config.FlagModel,
	config.FlagTopK,
	config.FlagStatePath,
}

const chatLongDesc string = `Ask questions about your notes.

Each question retrieves the most relevant notes from the index, sends them to
the completion provider together with the thread history, and streams the
answer followed by the notes it drew on.

With a question argument, vellum answers once and exits. Without one, it
starts an interactive session in the active thread (the most recently used
one). Inside the session:
  /new              Start a new thread
  /threads          List threads
  /use <thread>     Switch thread by name or ID prefix
  /rename <name>    Rename the current thread
  /clear            Clear the current thread's history
  /exit             Quit (or Ctrl+D)

Examples:
  vellum chat
  vellum chat "what did I plan for the garden this spring?"
  vellum chat --thread "garden" --model gpt-4o
  vellum chat --new --raw`

const chatShortDesc string = "Ask questions about your notes"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ws, _, err := setup.Workspace(ctx, cmd, setup.Options{FlagKeys: chatFlagKeys, Quiet: true})
			if err != nil {
				return err
			}
			defer ws.Close()

			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(ctx, ws, strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.flags.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.flags.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.flags.model)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.flags.topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagStatePath, &cmder.flags.statePath)
	cmd.Flags().StringVarP(&cmder.threadRef, "thread", "t", "", "Thread to chat in, by name or ID prefix")
	cmd.Flags().BoolVarP(&cmder.newThread, "new", "n", false, "Start a new thread")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Stream plain text instead of rendering markdown")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, ws *workspace.Workspace, question string) error {
	orchestrator, err := ws.Chat()
	if err != nil {
		return fmt.Errorf("chat unavailable: %w", err)
	}
	c.ws = ws
	c.chat = orchestrator

	if err := c.selectThread(ctx); err != nil {
		return err
	}

	if strings.TrimSpace(question) != "" {
		return c.ask(ctx, question)
	}
	return c.repl(ctx)
}

func (c *chatCommander) selectThread(ctx context.Context) error {
	threads := c.ws.Threads

	switch {
	case c.newThread:
		t, err := threads.Create(ctx)
		if err != nil {
			return err
		}
		c.threadID = t.ID
	case c.threadRef != "":
		t, err := threads.Resolve(c.threadRef)
		if err != nil {
			return err
		}
		c.threadID = t.ID
	default:
		t, err := threads.Active()
		if err != nil {
			return err
		}
		c.threadID = t.ID
	}
	return threads.SetActive(c.threadID)
}

func (c *chatCommander) repl(ctx context.Context) error {
	c.printHeader()

	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := c.command(ctx, input)
			if err != nil {
				fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
			}
			if quit {
				break
			}
			continue
		}

		if err := c.ask(ctx, input); err != nil {
			fmt.Fprintf(c.errOut, "  %s %v\n", cliui.FailMark, err)
			if ctx.Err() != nil {
				break
			}
		}
	}

	fmt.Fprintln(c.out)
	return scanner.Err()
}

// command handles a slash command and reports whether the session should end.
func (c *chatCommander) command(ctx context.Context, input string) (bool, error) {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	threads := c.ws.Threads

	switch name {
	case "/exit", "/quit":
		return true, nil

	case "/new":
		t, err := threads.Create(ctx)
		if err != nil {
			return false, err
		}
		c.threadID = t.ID
		fmt.Fprintf(c.out, "  %s %s\n", cliui.SuccessMark, cliui.NameStyle.Render(t.Name))

	case "/threads":
		for _, t := range threads.List() {
			marker := " "
			if t.ID == c.threadID {
				marker = "●"
			}
			fmt.Fprintf(c.out, "  %s %s %s %s\n",
				marker,
				cliui.DimStyle.Render(t.ID[:8]),
				cliui.NameStyle.Render(t.Name),
				cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(t.Messages))),
			)
		}

	case "/use":
		if arg == "" {
			return false, errors.New("usage: /use <thread>")
		}
		t, err := threads.Resolve(arg)
		if err != nil {
			return false, err
		}
		if err := threads.SetActive(t.ID); err != nil {
			return false, err
		}
		c.threadID = t.ID
		fmt.Fprintf(c.out, "  %s %s\n", cliui.SuccessMark, cliui.NameStyle.Render(t.Name))

	case "/rename":
		if err := threads.Rename(ctx, c.threadID, arg); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "  %s Renamed to %s\n", cliui.SuccessMark, cliui.NameStyle.Render(arg))

	case "/clear":
		if err := threads.Clear(ctx, c.threadID); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "  %s Cleared\n", cliui.SuccessMark)

	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

// ask answers one question. On a terminal the answer is rendered as
// markdown once complete; otherwise fragments are written as they arrive.
func (c *chatCommander) ask(ctx context.Context, question string) error {
	if c.render() {
		var answer string
		err := cliui.Step(c.errOut, "Thinking", func() error {
			var err error
			answer, err = c.chat.SendMessage(ctx, c.threadID, question, chat.Discard)
			return err
		})
		if err != nil {
			return err
		}

		rendered, err := cliui.RenderMarkdown(answer)
		if err != nil {
			rendered = answer
		}
		fmt.Fprint(c.out, rendered)
		return nil
	}

	fmt.Fprint(c.out, assistantPrompt)
	streamed := 0
	_, err := c.chat.SendMessage(ctx, c.threadID, question, chat.SinkFuncs{
		OnChunk: func(text string) {
			streamed += len(text)
			fmt.Fprint(c.out, text)
		},
		OnDone: func(answer string) {
			// The final answer extends the streamed text with its sources.
			if streamed <= len(answer) {
				fmt.Fprint(c.out, answer[streamed:])
			}
			fmt.Fprint(c.out, "\n\n")
		},
		OnFail: func(error) { fmt.Fprintln(c.out) },
	})
	return err
}

func (c *chatCommander) render() bool {
	if c.raw {
		return false
	}
	f, ok := c.out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (c *chatCommander) printHeader() {
	t, err := c.ws.Threads.Get(c.threadID)
	if err != nil {
		return
	}

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  %s %s %s\n",
		cliui.KeyStyle.Render("Thread:"),
		cliui.NameStyle.Render(utils.Truncate(t.Name, thread.AutoNameLength)),
		cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(t.Messages))),
	)
	fmt.Fprintf(c.out, "  %s %s  %s %s\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.ValueStyle.Render(c.ws.Config.Provider.Model),
		cliui.KeyStyle.Render("Notes:"),
		cliui.ValueStyle.Render(fmt.Sprint(c.ws.Store.Len())),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))
}
