// Package api provides the HTTP API server for searching the vault index,
// running index jobs and chatting in threads.
package api

import (
	"net/http"

	"github.com/papercomputeco/vellum/pkg/chat"
	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/thread"
	"github.com/papercomputeco/vellum/pkg/vector"
	"github.com/papercomputeco/vellum/pkg/worker"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Store answers search requests.
	Store vector.Store

	// Threads backs the thread endpoints.
	Threads *thread.Registry

	// Chat answers messages. Optional: without it the message endpoint
	// returns 503.
	Chat *chat.Orchestrator

	// Pool runs index jobs. Optional: without it the index endpoints return
	// 503.
	Pool *worker.Pool

	// State backs the state export endpoint. Optional.
	State storage.Driver

	// MCP is mounted at /mcp when set.
	MCP http.Handler
}
