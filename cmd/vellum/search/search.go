// Package searchcmder provides the search command for semantic search over
// the vault index.
package searchcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vellum/api"
	"github.com/papercomputeco/vellum/cmd/vellum/setup"
	"github.com/papercomputeco/vellum/pkg/cliui"
	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/source"
	"github.com/papercomputeco/vellum/pkg/utils"
)

type searchCommander struct {
	query     string
	topK      int
	quiet     bool
	jsonOut   bool
	apiTarget string
	statePath string
	embedding string
}

const searchLongDesc string = `Search the vault index.

Embeds the query and returns the most similar notes with their scores and
summaries. By default the local index in the state database is searched;
with --api-target, a running "vellum serve" is queried instead.

Use --quiet to print only note paths, one per line.

Examples:
  vellum search "tomato watering schedule"
  vellum search "project deadlines" --top-k 10
  vellum search "meeting notes" --api-target http://localhost:8081
  vellum search "recipes" --quiet | xargs -I{} cat ~/notes/{}`

const searchShortDesc string = "Search the vault index"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			if strings.TrimSpace(cmder.query) == "" {
				return errors.New("query cannot be empty")
			}

			var output *api.SearchOutput
			var err error
			if cmder.apiTarget != "" {
				output, err = SearchAPI(cmd.Context(), cmder.apiTarget, cmder.query, cmder.topK)
			} else {
				output, err = cmder.searchLocal(cmd)
			}
			if err != nil {
				return err
			}
			return cmder.print(cmd.OutOrStdout(), output)
		},
	}

	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	config.AddStringFlag(cmd, config.Flags, config.FlagStatePath, &cmder.statePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embedding)
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only note paths, one per line (for piping)")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Output results as JSON")
	cmd.Flags().StringVar(&cmder.apiTarget, "api-target", "", "Query a running vellum API server instead of the local index")

	return cmd
}

func (c *searchCommander) searchLocal(cmd *cobra.Command) (*api.SearchOutput, error) {
	ws, _, err := setup.Workspace(cmd.Context(), cmd, setup.Options{
		FlagKeys: []string{config.FlagTopK, config.FlagStatePath, config.FlagEmbeddingProv},
		Quiet:    true,
	})
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	topK := ws.Config.Retrieval.TopK
	results, err := ws.Store.Search(cmd.Context(), c.query, topK)
	if err != nil {
		return nil, err
	}
	return &api.SearchOutput{Query: c.query, Results: results, Count: len(results)}, nil
}

func (c *searchCommander) print(out io.Writer, output *api.SearchOutput) error {
	switch {
	case c.jsonOut:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(output)

	case c.quiet:
		for _, r := range output.Results {
			fmt.Fprintln(out, r.Path)
		}
		return nil
	}

	if output.Count == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	fmt.Fprintf(out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		cliui.NameStyle.Render(fmt.Sprintf("%q", output.Query)),
	)
	for i, r := range output.Results {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			cliui.TitleStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.FormatScore(r.Score),
			cliui.ValueStyle.Render(source.DisplayName(r.Path)),
		)
		fmt.Fprintf(out, "      %s\n", cliui.DimStyle.Render(r.Path))
		if r.Summary != "" {
			summary := strings.ReplaceAll(utils.Truncate(r.Summary, 120), "\n", " ")
			fmt.Fprintf(out, "      %s\n", cliui.StepStyle.Render(summary))
		}
		fmt.Fprintln(out)
	}
	return nil
}

// SearchAPI calls the vellum search API and returns the parsed output.
func SearchAPI(ctx context.Context, apiTarget, query string, topK int) (*api.SearchOutput, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vellum API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output api.SearchOutput
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
