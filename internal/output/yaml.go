package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/mapleads/pkg/business"
)

// YAMLWriter writes records as a YAML sequence.
type YAMLWriter struct {
	w     *bufio.Writer
	items []business.Record
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{
		w:     bufio.NewWriter(w),
		items: make([]business.Record, 0),
	}
}

// Write buffers a single record.
func (w *YAMLWriter) Write(r business.Record) error {
	w.items = append(w.items, r)
	return nil
}

// WriteAll buffers multiple records.
func (w *YAMLWriter) WriteAll(rs []business.Record) error {
	w.items = append(w.items, rs...)
	return nil
}

// Flush writes the buffered records as YAML.
func (w *YAMLWriter) Flush() error {
	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	if err := encoder.Encode(w.items); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	w.items = w.items[:0]
	return w.w.Flush()
}

// Close flushes and closes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
