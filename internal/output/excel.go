package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jmylchreest/mapleads/pkg/business"
)

// DefaultSheet is the worksheet name used for Excel output.
const DefaultSheet = "Businesses"

// ExcelWriter buffers records and writes them as an .xlsx workbook with a
// single worksheet.
type ExcelWriter struct {
	w     io.Writer
	sheet string
	items []business.Record
	done  bool
}

// NewExcelWriter creates an Excel writer.
func NewExcelWriter(w io.Writer, sheet string) *ExcelWriter {
	if sheet == "" {
		sheet = DefaultSheet
	}
	return &ExcelWriter{w: w, sheet: sheet}
}

// Write buffers a single record.
func (w *ExcelWriter) Write(r business.Record) error {
	w.items = append(w.items, r)
	return nil
}

// WriteAll buffers multiple records.
func (w *ExcelWriter) WriteAll(rs []business.Record) error {
	w.items = append(w.items, rs...)
	return nil
}

// Flush writes the workbook. A workbook is a single archive, so only the
// first call produces output.
func (w *ExcelWriter) Flush() error {
	if w.done {
		return nil
	}
	w.done = true

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", w.sheet); err != nil {
		return err
	}
	if err := w.setRow(f, 1, business.Columns); err != nil {
		return err
	}
	for i, r := range w.items {
		if err := w.setRow(f, i+2, r.Row()); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(w.sheet, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(w.sheet, "A", "H", 28); err != nil {
		return err
	}

	return f.Write(w.w)
}

func (w *ExcelWriter) setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}

// Close flushes the writer.
func (w *ExcelWriter) Close() error {
	return w.Flush()
}
