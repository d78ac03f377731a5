package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MarkdownSource is implemented by results that carry converted Markdown.
type MarkdownSource interface {
	MarkdownBody() string
}

// MarkdownWriter writes the Markdown of each item, separated by a
// horizontal rule. Items are written as they arrive.
type MarkdownWriter struct {
	w       *bufio.Writer
	written int
}

// NewMarkdownWriter creates a Markdown writer.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{w: bufio.NewWriter(w)}
}

// Write writes one item. It accepts a MarkdownSource, a string or a
// fmt.Stringer.
func (w *MarkdownWriter) Write(data any) error {
	var body string
	switch v := data.(type) {
	case MarkdownSource:
		body = v.MarkdownBody()
	case string:
		body = v
	case fmt.Stringer:
		body = v.String()
	default:
		return fmt.Errorf("markdown output does not support %T", data)
	}

	if w.written > 0 {
		if _, err := w.w.WriteString("\n---\n\n"); err != nil {
			return err
		}
	}
	if _, err := w.w.WriteString(strings.TrimRight(body, "\n") + "\n"); err != nil {
		return err
	}
	w.written++
	return w.w.Flush()
}

// WriteAll writes multiple items.
func (w *MarkdownWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the buffer.
func (w *MarkdownWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *MarkdownWriter) Close() error {
	return w.Flush()
}
