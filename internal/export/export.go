// Package export writes messages and analysis results to JSON, CSV and XLSX
// files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DefaultSheet is the worksheet name used for XLSX exports.
const DefaultSheet = "Messages"

var (
	// ErrUnknownFormat is returned for a format name that is not json, csv
	// or xlsx.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrNoRows is returned when a tabular format is requested for a
	// dataset that has no row form.
	ErrNoRows = errors.New("dataset has no tabular form")
)

// ParseFormat converts a string to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Row is one record of a tabular export, keyed by column name.
type Row map[string]any

// Dataset is something to export. Value is written by the JSON format;
// Rows by CSV and XLSX.
type Dataset struct {
	Kind  string
	Value any
	Rows  []Row
}

// Exporter writes datasets into a directory.
type Exporter struct {
	dir   string
	sheet string
	now   func() time.Time
}

// New creates an Exporter writing generated file names into dir.
func New(dir string) *Exporter {
	return &Exporter{dir: dir, sheet: DefaultSheet, now: time.Now}
}

// FileName returns the default name for a kind exported at t, for example
// messages_20240102_150405.json.
func FileName(kind string, format Format, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", kind, t.Format("20060102_150405"), format)
}

// Export writes ds in format to path, or to a generated file name inside
// the exporter's directory when path is empty. It returns the path written.
func (e *Exporter) Export(ds Dataset, format Format, path string) (string, error) {
	if path == "" {
		kind := ds.Kind
		if kind == "" {
			kind = "export"
		}
		if e.dir != "" {
			if err := os.MkdirAll(e.dir, 0o755); err != nil {
				return "", fmt.Errorf("creating export directory: %w", err)
			}
		}
		path = filepath.Join(e.dir, FileName(kind, format, e.now()))
	}

	switch format {
	case FormatJSON:
		return path, writeFile(path, func(w io.Writer) error { return WriteJSON(w, ds.Value) })
	case FormatCSV:
		if ds.Rows == nil {
			return "", fmt.Errorf("%w: %s as csv", ErrNoRows, ds.Kind)
		}
		return path, writeFile(path, func(w io.Writer) error { return WriteCSV(w, ds.Rows) })
	case FormatXLSX:
		if ds.Rows == nil {
			return "", fmt.Errorf("%w: %s as xlsx", ErrNoRows, ds.Kind)
		}
		return path, WriteXLSX(path, e.sheet, ds.Rows)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes v as indented UTF-8 JSON. Non-ASCII text and HTML
// characters are written unescaped.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Header returns the sorted union of the column names of rows.
func Header(rows []Row) []string {
	var cols []string
	for _, r := range rows {
		for k := range r {
			cols = append(cols, k)
		}
	}
	cols = lo.Uniq(cols)
	slices.Sort(cols)
	return cols
}

// WriteCSV writes rows with a header line. Missing columns are empty;
// nested maps, slices and structs are JSON encoded. No rows writes nothing.
func WriteCSV(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	header := Header(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, r := range rows {
		for i, col := range header {
			cell, err := cellString(r[col])
			if err != nil {
				return fmt.Errorf("column %s: %w", col, err)
			}
			record[i] = cell
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes rows to a single-sheet workbook at path: a header row
// followed by one row per record.
func WriteXLSX(path, sheet string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = DefaultSheet
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := Header(rows)
	for i, col := range header {
		if err := setCell(f, sheet, i+1, 1, col); err != nil {
			return err
		}
	}

	for r, row := range rows {
		for i, col := range header {
			v, ok := row[col]
			if !ok || v == nil {
				continue
			}
			if nested(v) {
				s, err := cellString(v)
				if err != nil {
					return fmt.Errorf("column %s: %w", col, err)
				}
				v = s
			}
			if err := setCell(f, sheet, i+1, r+2, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, v)
}

func nested(v any) bool {
	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	default:
		return false
	}
}

func cellString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case fmt.Stringer:
		return x.String(), nil
	}

	if nested(v) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return fmt.Sprint(v), nil
}
