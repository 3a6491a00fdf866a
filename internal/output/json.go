package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/mapleads/pkg/business"
)

// JSONWriter writes records as a JSON array.
type JSONWriter struct {
	w      *bufio.Writer
	pretty bool
	indent string
	items  []business.Record
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
		items:  make([]business.Record, 0),
	}
}

// Write buffers a single record.
func (w *JSONWriter) Write(r business.Record) error {
	w.items = append(w.items, r)
	return nil
}

// WriteAll buffers multiple records.
func (w *JSONWriter) WriteAll(rs []business.Record) error {
	w.items = append(w.items, rs...)
	return nil
}

// Flush writes the buffered records as a JSON array. An empty set is
// written as [].
func (w *JSONWriter) Flush() error {
	var output []byte
	var err error
	if w.pretty {
		output, err = json.MarshalIndent(w.items, "", w.indent)
	} else {
		output, err = json.Marshal(w.items)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}
	w.items = w.items[:0]
	return w.w.Flush()
}

// Close flushes and closes the writer.
func (w *JSONWriter) Close() error {
	return w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL).
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write writes a single record as a JSON line.
func (w *JSONLWriter) Write(r business.Record) error {
	output, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(output); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// WriteAll writes multiple records as JSON lines.
func (w *JSONLWriter) WriteAll(rs []business.Record) error {
	for _, r := range rs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
