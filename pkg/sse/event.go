// Package sse provides the small subset of Server-Sent Events needed to
// consume streaming completion backends and to push chat fragments to HTTP
// clients.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is a single "data:" payload from an SSE stream.
type Event struct {
	// Type is the value of the most recent "event:" field in the same block.
	// An empty string means the default "message" type.
	Type string

	// Data is the payload of one "data:" line.
	Data string

	// ID is the last event ID seen in the block, if any.
	ID string
}
