package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/vellum/pkg/source"
	"github.com/papercomputeco/vellum/pkg/utils"
	"github.com/papercomputeco/vellum/pkg/vector"
)

var (
	searchToolName    = "search"
	searchDescription = "Search the user's notes vault using semantic search. Returns the most relevant notes for the query text with their content."
)

// previewLength bounds the note text returned per result.
const previewLength = 2000

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query text to find relevant notes"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of results to return (default: 3)"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Path    string  `json:"path"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Summary string  `json:"summary,omitempty"`
	Text    string  `json:"text"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	topK := input.TopK
	if topK <= 0 {
		topK = vector.DefaultTopK
	}

	logger.Debug("MCP search request",
		"query", input.Query,
		"top_k", topK,
	)

	results, err := s.config.Store.Search(ctx, input.Query, topK)
	if err != nil {
		logger.Error("failed to search vector store", "error", err)
		return toolError(fmt.Sprintf("Failed to search notes: %v", err)), SearchOutput{}, nil
	}

	output := SearchOutput{
		Query:   input.Query,
		Results: make([]SearchResult, 0, len(results)),
	}
	for _, r := range results {
		output.Results = append(output.Results, buildSearchResult(r))
	}
	output.Count = len(output.Results)

	return jsonResult(output)
}

// buildSearchResult converts a vector search result into a tool result.
func buildSearchResult(r vector.SearchResult) SearchResult {
	return SearchResult{
		Path:    r.Path,
		Title:   source.DisplayName(r.Path),
		Score:   r.Score,
		Summary: r.Summary,
		Text:    utils.Truncate(r.Text, previewLength),
	}
}

// jsonResult returns output as structured content plus a serialized JSON text
// block for clients that only read text content.
func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
