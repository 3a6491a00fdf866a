// Package output writes business records to files.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmylchreest/mapleads/pkg/business"
)

// Format represents output format types.
type Format string

const (
	FormatExcel Format = "excel"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{FormatExcel, FormatCSV, FormatJSON, FormatJSONL, FormatYAML}

// ErrUnsupportedFormat is returned for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// ParseFormat resolves a format name. Common aliases such as "xlsx" and
// "yml" are accepted.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "excel", "xlsx":
		return FormatExcel, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return string(f)
}

// Writer handles output serialization.
type Writer interface {
	// Write outputs a single record.
	Write(r business.Record) error

	// WriteAll outputs multiple records.
	WriteAll(rs []business.Record) error

	// Flush ensures all data is written.
	Flush() error

	// Close flushes and releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
	bom    bool
	sheet  string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithBOM controls the UTF-8 byte order mark at the start of CSV output.
// Spreadsheet applications need it to detect the encoding.
func WithBOM(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.bom = enabled
	}
}

// WithSheet sets the worksheet name for Excel output.
func WithSheet(name string) WriterOption {
	return func(c *writerConfig) {
		c.sheet = name
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
		bom:    true,
		sheet:  DefaultSheet,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatExcel:
		return NewExcelWriter(w, cfg.sheet), nil
	case FormatCSV:
		return NewCSVWriter(w, cfg.bom), nil
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// DatedDir returns the output directory for a run started at t:
// base/YYYY-MM-DD.
func DatedDir(base string, t time.Time) string {
	return filepath.Join(base, t.Format("2006-01-02"))
}

// Save writes records to dir/name.<ext>, creating dir if needed, and
// returns the file path. An empty record set still produces a file.
func Save(dir, name string, format Format, records []business.Record, opts ...WriterOption) (path string, err error) {
	if name == "" {
		name = "results"
	}
	format, err = ParseFormat(string(format))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path = filepath.Join(dir, name+"."+format.Ext())

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w, err := NewWriter(f, format, opts...)
	if err != nil {
		return "", err
	}
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("failed to write records: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", format, err)
	}
	return path, nil
}
