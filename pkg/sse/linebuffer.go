package sse

import (
	"bytes"
	"strings"
)

// LineBuffer reassembles newline-terminated lines from arbitrarily split
// writes. A network read may end in the middle of a line; the partial tail
// is held until the rest of it arrives.
type LineBuffer struct {
	pending strings.Builder
}

// Write appends p and returns every line completed by it, without the
// terminating "\n" or a trailing "\r".
func (b *LineBuffer) Write(p []byte) []string {
	var lines []string
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			b.pending.Write(p)
			break
		}
		b.pending.Write(p[:i])
		lines = append(lines, strings.TrimSuffix(b.pending.String(), "\r"))
		b.pending.Reset()
		p = p[i+1:]
	}
	return lines
}

// Flush returns the unterminated tail, if any, and empties the buffer.
func (b *LineBuffer) Flush() (string, bool) {
	if b.pending.Len() == 0 {
		return "", false
	}
	line := strings.TrimSuffix(b.pending.String(), "\r")
	b.pending.Reset()
	return line, true
}
