package sse

import (
	"io"
	"strings"
)

type flusher interface {
	Flush() error
}

// Writer frames events onto an SSE response body.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer on w. If w has a Flush() error method (such as
// *bufio.Writer) it is flushed after every event.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent writes ev followed by the blank line that terminates it.
// Multi-line data is split across several "data:" lines.
func (w *Writer) WriteEvent(ev Event) error {
	var b strings.Builder

	if ev.ID != "" {
		b.WriteString("id: " + ev.ID + "\n")
	}
	if ev.Type != "" {
		b.WriteString("event: " + ev.Type + "\n")
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		b.WriteString("data: " + line + "\n")
	}
	b.WriteString("\n")

	if _, err := io.WriteString(w.w, b.String()); err != nil {
		return err
	}

	if f, ok := w.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
