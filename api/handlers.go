package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/vellum/pkg/indexer"
	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/worker"
)

// StatsResponse summarizes the index and threads.
type StatsResponse struct {
	Documents int `json:"documents"`
	Threads   int `json:"threads"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns document and thread counts.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(StatsResponse{
		Documents: s.config.Store.Len(),
		Threads:   len(s.config.Threads.List()),
	})
}

// handleStartIndex queues an index job and returns its initial state.
func (s *Server) handleStartIndex(c *fiber.Ctx) error {
	if s.config.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "indexing is not configured"})
	}

	job, err := s.config.Pool.Submit()
	switch {
	case errors.Is(err, worker.ErrQueueFull):
		return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{Error: err.Error()})
	case err != nil:
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(job.State())
}

// handleListIndexJobs returns every remembered job, oldest first.
func (s *Server) handleListIndexJobs(c *fiber.Ctx) error {
	if s.config.Pool == nil {
		return c.JSON([]indexer.JobState{})
	}
	return c.JSON(s.config.Pool.Jobs())
}

// handleGetIndexJob returns a job's progress.
func (s *Server) handleGetIndexJob(c *fiber.Ctx) error {
	job, ok := s.lookupJob(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "index job not found"})
	}
	return c.JSON(job.State())
}

// handleCancelIndexJob requests cancellation. The job stops at its next
// batch boundary.
func (s *Server) handleCancelIndexJob(c *fiber.Ctx) error {
	job, ok := s.lookupJob(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "index job not found"})
	}
	job.Cancel()
	return c.Status(fiber.StatusAccepted).JSON(job.State())
}

func (s *Server) lookupJob(id string) (*indexer.Job, bool) {
	if s.config.Pool == nil {
		return nil, false
	}
	return s.config.Pool.Get(id)
}

// handleExportState returns the persisted settings, vector index and threads
// as one document.
func (s *Server) handleExportState(c *fiber.Ctx) error {
	if s.config.State == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "state storage is not configured"})
	}

	data, err := storage.Export(c.Context(), s.config.State)
	if err != nil {
		s.logger.Error("state export failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to export state"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}
