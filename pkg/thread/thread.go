// Package thread owns conversation threads: their history, their names and
// the per-thread streaming flag that keeps a thread to one request at a time.
package thread

import (
	"errors"
	"time"

	"github.com/papercomputeco/vellum/pkg/llm"
)

// DefaultNamePrefix starts the name of every thread created without one.
const DefaultNamePrefix = "New thread"

// AutoNameLength is the number of characters of the first question used as
// the thread name.
const AutoNameLength = 50

var (
	// ErrNotFound is returned for an unknown thread ID.
	ErrNotFound = errors.New("thread not found")

	// ErrThreadBusy is returned when a thread already has a request in
	// flight.
	ErrThreadBusy = errors.New("thread is busy streaming a response")
)

// Thread is one conversation.
type Thread struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Messages  []llm.Message `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	// Streaming is set while a response is being produced. It is cleared on
	// load, since no stream survives a restart.
	Streaming bool `json:"isStreaming"`

	// Named is set once the thread has been named from its first question
	// or renamed explicitly.
	Named bool `json:"named,omitempty"`
}

func (t *Thread) clone() Thread {
	c := *t
	c.Messages = append([]llm.Message(nil), t.Messages...)
	return c
}
