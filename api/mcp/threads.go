package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/vellum/pkg/llm"
)

var (
	threadRecallToolName    = "thread_recall"
	threadRecallDescription = "Recall a past conversation with the notes assistant. Given a thread ID or name, returns its messages in order. Without one, returns the active thread."
)

// ThreadRecallInput represents the input arguments for the thread_recall tool.
type ThreadRecallInput struct {
	Thread string `json:"thread,omitempty" jsonschema:"thread ID, ID prefix or name; empty for the active thread"`
}

// ThreadRecallOutput represents the output of the thread_recall tool.
type ThreadRecallOutput struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Messages []llm.Message `json:"messages"`
}

func (s *Server) handleThreadRecall(_ context.Context, _ *mcp.CallToolRequest, input ThreadRecallInput) (*mcp.CallToolResult, ThreadRecallOutput, error) {
	registry := s.config.Threads

	t, err := registry.Active()
	if input.Thread != "" {
		t, err = registry.Resolve(input.Thread)
	}
	if err != nil {
		return toolError(fmt.Sprintf("Failed to recall thread: %v", err)), ThreadRecallOutput{}, nil
	}

	messages := t.Messages
	if messages == nil {
		messages = []llm.Message{}
	}
	return jsonResult(ThreadRecallOutput{
		ID:       t.ID,
		Name:     t.Name,
		Messages: messages,
	})
}
