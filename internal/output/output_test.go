package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/mapleads/pkg/business"
)

var testRecords = []business.Record{
	{
		Name:        "Acme Bakery",
		Address:     "12 Rue de Rivoli, 75004 Paris",
		Domain:      "acmebakery.fr",
		Website:     "https://www.acmebakery.fr",
		PhoneNumber: "01 42 00 00 00",
		Email:       "sales@acmebakery.fr",
		Category:    "bakeries",
		Location:    "Paris",
	},
	{
		Name:     "Café, \"Le Coin\"",
		Category: "bakeries",
		Location: "Paris",
	},
}

// --- NewWriter Factory Tests ---

func TestNewWriter_Types(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatExcel, "*output.ExcelWriter"},
		{FormatCSV, "*output.CSVWriter"},
		{FormatJSON, "*output.JSONWriter"},
		{FormatJSONL, "*output.JSONLWriter"},
		{FormatYAML, "*output.YAMLWriter"},
	}
	for _, tt := range tests {
		w, err := NewWriter(&bytes.Buffer{}, tt.format)
		if err != nil {
			t.Fatalf("NewWriter(%s) error = %v", tt.format, err)
		}
		if got := fmt.Sprintf("%T", w); got != tt.want {
			t.Errorf("NewWriter(%s): expected %s, got %s", tt.format, tt.want, got)
		}
	}
}

func TestNewWriter_UnsupportedFormat(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, Format("parquet"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"excel", FormatExcel},
		{"XLSX", FormatExcel},
		{"csv", FormatCSV},
		{"json", FormatJSON},
		{"ndjson", FormatJSONL},
		{" yml ", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFormat_Ext(t *testing.T) {
	if FormatExcel.Ext() != "xlsx" || FormatCSV.Ext() != "csv" || FormatYAML.Ext() != "yaml" {
		t.Error("unexpected file extensions")
	}
}

// --- JSON / JSONL ---

func TestJSONWriter_WritesArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, true, "  ")
	if err := w.WriteAll(testRecords[:1]); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got []business.Record
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(got) != 1 || got[0] != testRecords[0] {
		t.Errorf("unexpected result: %+v", got)
	}
	if !strings.Contains(buf.String(), `"phone_number": "01 42 00 00 00"`) {
		t.Errorf("expected snake_case phone_number key, got %s", buf.String())
	}
}

func TestJSONWriter_EmptyIsArray(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONWriter(buf, false, "")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "[]" {
		t.Errorf("expected [], got %q", got)
	}
}

func TestJSONLWriter_OneLinePerRecord(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewJSONLWriter(buf)
	if err := w.WriteAll(testRecords); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var r business.Record
	if err := json.Unmarshal([]byte(lines[1]), &r); err != nil {
		t.Fatalf("line 2 is not valid JSON: %v", err)
	}
	if r.Name != testRecords[1].Name {
		t.Errorf("expected %q, got %q", testRecords[1].Name, r.Name)
	}
}

// --- YAML ---

func TestYAMLWriter_WritesSequence(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewYAMLWriter(buf)
	if err := w.WriteAll(testRecords); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	var got []business.Record
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal output: %v", err)
	}
	if len(got) != 2 || got[0].Email != "sales@acmebakery.fr" {
		t.Errorf("unexpected result: %+v", got)
	}
}

// --- CSV ---

func TestCSVWriter_HeaderAndBOM(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewCSVWriter(buf, true)
	if err := w.WriteAll(testRecords); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff") {
		t.Fatal("expected output to start with a UTF-8 BOM")
	}
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(business.Columns, ",") {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[2][0] != `Café, "Le Coin"` {
		t.Errorf("expected quoted name to round-trip, got %q", rows[2][0])
	}
}

func TestCSVWriter_EmptyStillHasHeader(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewCSVWriter(buf, false)
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != strings.Join(business.Columns, ",") {
		t.Errorf("expected header only, got %q", got)
	}
}

// --- Excel ---

func TestExcelWriter_Workbook(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewExcelWriter(buf, "")
	if err := w.WriteAll(testRecords); err != nil {
		t.Fatalf("WriteAll() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(DefaultSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][4] != "phone_number" || rows[1][0] != "Acme Bakery" || rows[1][5] != "sales@acmebakery.fr" {
		t.Errorf("unexpected rows %v", rows)
	}
}

// --- Save ---

func TestDatedDir(t *testing.T) {
	at := time.Date(2025, 3, 7, 18, 0, 0, 0, time.UTC)
	if got := DatedDir("GMaps_Data", at); got != filepath.Join("GMaps_Data", "2025-03-07") {
		t.Errorf("unexpected dated dir %q", got)
	}
}

func TestSave_CreatesDatedFile(t *testing.T) {
	dir := DatedDir(t.TempDir(), time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC))

	path, err := Save(dir, "bakeries_in_Paris", FormatCSV, testRecords)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Base(path) != "bakeries_in_Paris.csv" || filepath.Base(filepath.Dir(path)) != "2025-03-07" {
		t.Errorf("unexpected path %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), "Acme Bakery") {
		t.Error("expected record in saved file")
	}
}

func TestSave_ExcelExtension(t *testing.T) {
	path, err := Save(t.TempDir(), "cafes", FormatExcel, nil)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Ext(path) != ".xlsx" {
		t.Errorf("expected .xlsx extension, got %q", path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(DefaultSheet)
	if len(rows) != 1 {
		t.Errorf("expected header row only, got %d rows", len(rows))
	}
}

func TestSave_EmptyName(t *testing.T) {
	path, err := Save(t.TempDir(), "", FormatJSON, nil)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Base(path) != "results.json" {
		t.Errorf("expected results.json, got %q", path)
	}
}

func TestSave_UnsupportedFormat(t *testing.T) {
	if _, err := Save(t.TempDir(), "x", Format("pdf"), nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
