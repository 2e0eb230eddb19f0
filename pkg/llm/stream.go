package llm

import (
	"io"
	"iter"
	"sync/atomic"

	"github.com/papercomputeco/vellum/pkg/sse"
)

// StreamChunk is one parsed event of a streaming completion.
type StreamChunk struct {
	// Text fragment carried by the event. May be empty.
	Text string

	// Done marks the backend's end-of-stream sentinel.
	Done bool
}

// ChunkParser turns one SSE event into a chunk. Returning nil, nil skips the
// event. Parse errors are treated as malformed payloads and skipped.
type ChunkParser func(ev *sse.Event) (*StreamChunk, error)

// Stream is a finite, single-use sequence of text fragments read from a
// streaming completion response.
type Stream struct {
	body  io.ReadCloser
	parse ChunkParser
	used  atomic.Bool
}

// NewStream wraps a response body. The Stream owns body and closes it once
// iteration ends.
func NewStream(body io.ReadCloser, parse ChunkParser) *Stream {
	return &Stream{body: body, parse: parse}
}

// Text yields text fragments in arrival order until the backend signals the
// end or the connection closes. Only read and transport errors are yielded;
// the sequence stops after the first one. A second call yields
// ErrStreamConsumed.
func (s *Stream) Text() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !s.used.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		defer s.body.Close()

		r := sse.NewReader(s.body)
		for {
			ev, err := r.Next()
			if err != nil {
				yield("", err)
				return
			}
			if ev == nil {
				return
			}

			chunk, err := s.parse(ev)
			if err != nil || chunk == nil {
				continue
			}
			if chunk.Text != "" && !yield(chunk.Text, nil) {
				return
			}
			if chunk.Done {
				return
			}
		}
	}
}

// Close releases the response body without reading it. Safe to call after
// iteration.
func (s *Stream) Close() error {
	s.used.Store(true)
	return s.body.Close()
}
