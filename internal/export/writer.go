// Package export writes normalized rows into the per-vendor sheets of a report workbook.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/normalize"
)

const defaultSheet = "Sheet1"

// Writer is not safe for concurrent use; one session finalizer owns it.
type Writer struct {
	// Schema, when set, is authoritative for the header of appended sheets.
	Schema []string
	logger *slog.Logger
}

func NewWriter(schema []string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Schema: schema, logger: logger}
}

// WriteVendorRows creates the workbook or the vendor sheet, or appends below the existing rows
// after one blank separator row. It returns the realized header of the sheet.
func (w *Writer) WriteVendorRows(path, vendor string, table normalize.Table) ([]string, error) {
	if table.Len() == 0 {
		return nil, nil
	}
	sheet := invoice.SanitizeSheetName(vendor)

	f, created, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("export.close_failed", "path", path, "error", err)
		}
	}()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}

	var header []string
	var lastRow int
	if idx == -1 {
		header, lastRow, err = w.writeNewSheet(f, sheet, table, created)
	} else {
		header, lastRow, err = w.appendToSheet(f, sheet, table)
	}
	if err != nil {
		return nil, err
	}

	styles, err := newStyleSet(f)
	if err != nil {
		return nil, fmt.Errorf("styles: %w", err)
	}
	if err := styles.format(f, sheet, header, lastRow); err != nil {
		// formatting is cosmetic; the rows are already in place
		w.logger.Warn("export.format_failed", "sheet", sheet, "error", err)
	}

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("export.sheet.written",
		"path", path,
		"sheet", sheet,
		"rows", table.Len(),
		"appended", idx != -1,
		"columns", len(header),
	)
	return header, nil
}

func openOrCreate(path string) (*excelize.File, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return excelize.NewFile(), true, nil
		}
		return nil, false, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	return f, false, nil
}

func (w *Writer) writeNewSheet(f *excelize.File, sheet string, table normalize.Table, created bool) ([]string, int, error) {
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("new sheet %q: %w", sheet, err)
	}
	if created && sheet != defaultSheet {
		f.SetActiveSheet(idx)
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return nil, 0, err
		}
	}

	row := 1
	if err := setRow(f, sheet, row, stringsToCells(table.Columns)); err != nil {
		return nil, 0, err
	}
	for _, r := range table.Rows {
		row++
		if err := setRow(f, sheet, row, valuesToCells(r)); err != nil {
			return nil, 0, err
		}
	}
	return slices.Clone(table.Columns), row, nil
}

// appendToSheet merges the header (schema, or existing columns followed by new ones),
// re-lays existing rows when the header changed, then writes a blank row and the new rows.
func (w *Writer) appendToSheet(f *excelize.File, sheet string, table normalize.Table) ([]string, int, error) {
	existing, err := f.GetRows(sheet)
	if err != nil {
		return nil, 0, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	var oldHeader []string
	if len(existing) > 0 {
		oldHeader = existing[0]
	}

	header := slices.Clone(w.Schema)
	if len(header) == 0 {
		header = slices.Clone(oldHeader)
		for _, c := range table.Columns {
			if !slices.Contains(header, c) {
				header = append(header, c)
			}
		}
	}

	width := max(len(header), len(oldHeader))
	if !slices.Equal(header, oldHeader) {
		if err := setRow(f, sheet, 1, pad(stringsToCells(header), width)); err != nil {
			return nil, 0, err
		}
		for i := 1; i < len(existing); i++ {
			if err := setRow(f, sheet, i+1, pad(remap(existing[i], oldHeader, header), width)); err != nil {
				return nil, 0, err
			}
		}
	}

	row := max(len(existing), 1)
	row++ // blank separator
	for _, r := range table.Rows {
		row++
		cells := make([]any, len(header))
		for j, c := range header {
			if k := slices.Index(table.Columns, c); k >= 0 {
				cells[j] = cellValue(r[k])
			}
		}
		if err := setRow(f, sheet, row, cells); err != nil {
			return nil, 0, err
		}
	}
	return header, row, nil
}

func remap(row, from, to []string) []any {
	out := make([]any, len(to))
	for j, c := range to {
		if k := slices.Index(from, c); k >= 0 && k < len(row) {
			out[j] = restoreNumber(row[k])
		}
	}
	return out
}

// restoreNumber re-types cells read back as text so re-laid rows keep numeric cells numeric.
func restoreNumber(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == s {
		return f
	}
	return s
}

func pad(cells []any, width int) []any {
	for len(cells) < width {
		cells = append(cells, "")
	}
	return cells
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d of %q: %w", row, sheet, err)
	}
	return nil
}

func stringsToCells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func valuesToCells(vs []invoice.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = cellValue(v)
	}
	return out
}

func cellValue(v invoice.Value) any {
	if !v.IsNumber() && v.String() == "" {
		return nil
	}
	return v.Any()
}

func itoa(i int) string { return strconv.Itoa(i) }
