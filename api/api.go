package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
)

// Server is the API server for the vellum index and threads.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new API server over the configured components.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("vector store is required")
	}
	if config.Threads == nil {
		return nil, errors.New("thread registry is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/stats", s.handleStats)
	app.Get("/v1/search", s.handleSearchEndpoint)

	app.Post("/v1/index", s.handleStartIndex)
	app.Get("/v1/index", s.handleListIndexJobs)
	app.Get("/v1/index/:id", s.handleGetIndexJob)
	app.Delete("/v1/index/:id", s.handleCancelIndexJob)

	app.Get("/v1/threads", s.handleListThreads)
	app.Post("/v1/threads", s.handleCreateThread)
	app.Get("/v1/threads/:id", s.handleGetThread)
	app.Patch("/v1/threads/:id", s.handleRenameThread)
	app.Delete("/v1/threads/:id", s.handleDeleteThread)
	app.Post("/v1/threads/:id/clear", s.handleClearThread)
	app.Post("/v1/threads/:id/messages", s.handleSendMessage)

	app.Get("/v1/state", s.handleExportState)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
