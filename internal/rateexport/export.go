// Package rateexport writes a rate table as a CSV or XLSX download.
package rateexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"rateintake/internal/ratetable"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ParseFormat accepts "csv" and "xlsx"; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

const sheetName = "Rates"

// Write renders table in format to w. Headers are the cleaned column labels
// and cells use the display formatting.
func Write(w io.Writer, format Format, table ratetable.Table) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, table)
	case FormatCSV:
		return writeCSV(w, table)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// Bytes renders table in format into memory.
func Bytes(format Format, table ratetable.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, table); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(w io.Writer, table ratetable.Table) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(headerRow(table)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := range table.Rows {
		if err := cw.Write(cellRow(table, i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, table ratetable.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := headerRow(table)
	if err := f.SetSheetRow(sheetName, "A1", toAny(header)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
			return fmt.Errorf("styling header: %w", err)
		}
	}

	for i := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, xlsxRow(table, i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func headerRow(table ratetable.Table) []string {
	out := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		out[i] = c.Label
	}
	return out
}

func cellRow(table ratetable.Table, i int) []string {
	out := make([]string, len(table.Columns))
	for j, c := range table.Columns {
		out[j] = ratetable.FormatCell(table.Rows[i][c.Key])
	}
	return out
}

// xlsxRow keeps non-zero numbers numeric so spreadsheet formulas work.
func xlsxRow(table ratetable.Table, i int) *[]any {
	out := make([]any, len(table.Columns))
	for j, c := range table.Columns {
		v := table.Rows[i][c.Key]
		if f, ok := ratetable.ToFloat(v); ok && !ratetable.IsZeroLike(v) {
			out[j] = f
			continue
		}
		out[j] = ratetable.FormatCell(v)
	}
	return &out
}

func toAny(ss []string) *[]any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return &out
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a supplier name for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "rate_card"
	}
	return s
}

// BuildFilename returns {sanitized_name}_rates_{YYYY-MM-DD}.{ext}.
func BuildFilename(supplierName string, format Format, now time.Time) string {
	return fmt.Sprintf("%s_rates_%s.%s", SanitizeFilename(supplierName), now.Format("2006-01-02"), format)
}
