package output

import (
	"encoding/csv"
	"io"

	"github.com/jmylchreest/mapleads/pkg/business"
)

const utf8BOM = "\ufeff"

// CSVWriter writes records as comma-separated values with a header row.
type CSVWriter struct {
	raw     io.Writer
	w       *csv.Writer
	bom     bool
	started bool
}

// NewCSVWriter creates a CSV writer. With bom set, output starts with a
// UTF-8 byte order mark.
func NewCSVWriter(w io.Writer, bom bool) *CSVWriter {
	return &CSVWriter{raw: w, w: csv.NewWriter(w), bom: bom}
}

func (w *CSVWriter) header() error {
	if w.started {
		return nil
	}
	w.started = true
	if w.bom {
		if _, err := io.WriteString(w.raw, utf8BOM); err != nil {
			return err
		}
	}
	return w.w.Write(business.Columns)
}

// Write writes a single record as a row.
func (w *CSVWriter) Write(r business.Record) error {
	if err := w.header(); err != nil {
		return err
	}
	return w.w.Write(r.Row())
}

// WriteAll writes multiple records.
func (w *CSVWriter) WriteAll(rs []business.Record) error {
	for _, r := range rs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes the header if nothing was written yet and flushes
// buffered rows.
func (w *CSVWriter) Flush() error {
	if err := w.header(); err != nil {
		return err
	}
	w.w.Flush()
	return w.w.Error()
}

// Close flushes the writer.
func (w *CSVWriter) Close() error {
	return w.Flush()
}
