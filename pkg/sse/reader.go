package sse

import (
	"io"
	"strings"
)

const readChunkSize = 4096

// Reader yields one Event per "data:" line of an SSE stream.
//
// Backends differ in how they frame payloads: some send one JSON document per
// data line with no event type, others prefix each data line with an
// "event:" line. Emitting per data line rather than per blank-line-delimited
// block handles both without buffering whole blocks.
type Reader struct {
	src   io.Reader
	lines LineBuffer
	buf   []byte

	queue   []string
	eof     bool
	current Event
}

// NewReader returns a Reader over src.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src: src,
		buf: make([]byte, readChunkSize),
	}
}

// Next returns the next event. It returns nil, nil when the source is
// exhausted. A trailing line without a newline is still parsed.
func (r *Reader) Next() (*Event, error) {
	for {
		for len(r.queue) > 0 {
			line := r.queue[0]
			r.queue = r.queue[1:]
			if ev := r.parseLine(line); ev != nil {
				return ev, nil
			}
		}

		if r.eof {
			return nil, nil
		}

		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.queue = append(r.queue, r.lines.Write(r.buf[:n])...)
		}
		if err == io.EOF {
			r.eof = true
			if tail, ok := r.lines.Flush(); ok {
				r.queue = append(r.queue, tail)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseLine applies one line to the block state and returns an event for
// data lines.
func (r *Reader) parseLine(line string) *Event {
	if line == "" {
		r.current = Event{}
		return nil
	}

	// Comments, including keep-alives.
	if strings.HasPrefix(line, ":") {
		return nil
	}

	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")

	switch field {
	case "data":
		ev := r.current
		ev.Data = value
		return &ev
	case "event":
		r.current.Type = value
	case "id":
		r.current.ID = value
	}
	return nil
}
