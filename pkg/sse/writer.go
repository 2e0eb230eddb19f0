package sse

import (
	"bufio"
	"fmt"
	"strings"
)

// Writer frames events onto a buffered response stream and flushes after
// every event so that clients see fragments as they are produced.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w *bufio.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes ev. Multi-line data is split across several "data:"
// lines, which conforming clients join back with "\n".
func (w *Writer) WriteEvent(ev Event) error {
	if ev.Type != "" {
		if _, err := fmt.Fprintf(w.w, "event: %s\n", ev.Type); err != nil {
			return err
		}
	}
	if ev.ID != "" {
		if _, err := fmt.Fprintf(w.w, "id: %s\n", ev.ID); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	return w.w.Flush()
}
