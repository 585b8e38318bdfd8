// Package spreadsheet renders extracted rows as a single-worksheet xlsx file.
package spreadsheet

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

const (
	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// SheetName is the title of the only worksheet.
	SheetName = "Converted Data"

	maxColumnWidth = 50
	columnPadding  = 2
)

// Synthesizer builds xlsx workbooks. The zero value is ready to use.
type Synthesizer struct{}

// New creates a Synthesizer.
func New() *Synthesizer { return &Synthesizer{} }

// Synthesize writes rows to one worksheet, row i to row i+1. Every value is
// written as text so leading zeros and long digit strings survive. Short
// rows leave their trailing cells empty.
func (s *Synthesizer) Synthesize(rows []models.Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name worksheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream writer: %w", err)
	}

	// Column widths must be set before the first row is written.
	for col, width := range ColumnWidths(rows) {
		if width == 0 {
			continue
		}
		if err := sw.SetColWidth(col+1, col+1, width); err != nil {
			return nil, fmt.Errorf("failed to set width of column %d: %w", col+1, err)
		}
	}

	for i, row := range rows {
		values := make([]interface{}, len(row))
		for c, v := range row {
			if v != "" {
				values[c] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush worksheet: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialise workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ColumnWidths returns one width per column of the widest row: the longest
// cell in runes plus padding, capped at 50. Columns with no text get 0,
// meaning the default width.
func ColumnWidths(rows []models.Row) []float64 {
	widths := make([]float64, models.MaxWidth(rows))
	for _, row := range rows {
		for c, v := range row {
			n := utf8.RuneCountInString(v)
			if n == 0 {
				continue
			}
			w := float64(min(n+columnPadding, maxColumnWidth))
			if w > widths[c] {
				widths[c] = w
			}
		}
	}
	return widths
}
