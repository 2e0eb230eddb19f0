package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/vellum/pkg/chat"
	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/sse"
	"github.com/papercomputeco/vellum/pkg/thread"
)

// SSE event types sent by the message endpoint.
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// ThreadSummary is a thread without its messages.
type ThreadSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Messages  int       `json:"messages"`
	Streaming bool      `json:"isStreaming"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RenameRequest is the body of PATCH /v1/threads/:id.
type RenameRequest struct {
	Name string `json:"name"`
}

// MessageRequest is the body of POST /v1/threads/:id/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// ChunkEvent is the payload of chunk and done events.
type ChunkEvent struct {
	Text string `json:"text"`
}

func (s *Server) handleListThreads(c *fiber.Ctx) error {
	active, _ := s.config.Threads.Active()

	threads := s.config.Threads.List()
	out := make([]ThreadSummary, len(threads))
	for i, t := range threads {
		out[i] = ThreadSummary{
			ID:        t.ID,
			Name:      t.Name,
			Messages:  len(t.Messages),
			Streaming: t.Streaming,
			Active:    t.ID == active.ID,
			UpdatedAt: t.UpdatedAt,
		}
	}
	return c.JSON(out)
}

func (s *Server) handleCreateThread(c *fiber.Ctx) error {
	t, err := s.config.Threads.Create(c.Context())
	if err != nil {
		return s.threadError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (s *Server) handleGetThread(c *fiber.Ctx) error {
	t, err := s.config.Threads.Get(c.Params("id"))
	if err != nil {
		return s.threadError(c, err)
	}
	return c.JSON(t)
}

func (s *Server) handleRenameThread(c *fiber.Ctx) error {
	var req RenameRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "name is required"})
	}

	id := c.Params("id")
	if err := s.config.Threads.Rename(c.Context(), id, req.Name); err != nil {
		return s.threadError(c, err)
	}
	t, err := s.config.Threads.Get(id)
	if err != nil {
		return s.threadError(c, err)
	}
	return c.JSON(t)
}

func (s *Server) handleDeleteThread(c *fiber.Ctx) error {
	if err := s.config.Threads.Delete(c.Context(), c.Params("id")); err != nil {
		return s.threadError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleClearThread(c *fiber.Ctx) error {
	if err := s.config.Threads.Clear(c.Context(), c.Params("id")); err != nil {
		return s.threadError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleSendMessage answers a message as a server-sent event stream: one
// "chunk" event per fragment, then a "done" event carrying the full answer
// or an "error" event.
func (s *Server) handleSendMessage(c *fiber.Ctx) error {
	if s.config.Chat == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "chat is not configured"})
	}

	var req MessageRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	id := c.Params("id")
	t, err := s.config.Threads.Get(id)
	if err != nil {
		return s.threadError(c, err)
	}
	if t.Streaming {
		return s.threadError(c, thread.ErrThreadBusy)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// Same pipe approach as a proxied upstream stream: every write blocks
	// until fasthttp has sent the previous chunk.
	pr, pw := io.Pipe()
	go s.streamAnswer(id, req.Message, pw)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamAnswer runs the chat request and frames its output onto pw. The
// request context is gone once the handler returns, so the answer runs on
// its own context and is cancelled when the client stops reading.
func (s *Server) streamAnswer(threadID, message string, pw *io.PipeWriter) {
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := sse.NewWriter(bufio.NewWriter(pw))
	write := func(eventType string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		if err := w.WriteEvent(sse.Event{Type: eventType, Data: string(data)}); err != nil {
			s.logger.Debug("client went away", "thread_id", threadID, "error", err)
			cancel()
		}
	}

	_, _ = s.config.Chat.SendMessage(ctx, threadID, message, chat.SinkFuncs{
		OnChunk: func(text string) { write(EventChunk, ChunkEvent{Text: text}) },
		OnDone:  func(text string) { write(EventDone, ChunkEvent{Text: text}) },
		OnFail:  func(err error) { write(EventError, ErrorResponse{Error: err.Error()}) },
	})
}

// threadError maps registry and backend errors to HTTP statuses.
func (s *Server) threadError(c *fiber.Ctx, err error) error {
	var (
		backendErr *llm.BackendError
		cfgErr     *llm.ConfigurationError
	)
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, thread.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, thread.ErrThreadBusy):
		status = fiber.StatusConflict
	case errors.As(err, &backendErr):
		status = fiber.StatusBadGateway
	case errors.As(err, &cfgErr):
		status = fiber.StatusServiceUnavailable
	}
	if status == fiber.StatusInternalServerError {
		s.logger.Error("thread request failed", "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
}
