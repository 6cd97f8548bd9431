package registry

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxDateLayout is how date-formatted cells are rendered, matching the CSV
// exports.
const xlsxDateLayout = "2006-01-02"

// ReadXLSXFile reads the first sheet of a registry workbook. The first row is
// the header; short rows are padded with nulls. Date-formatted cells are
// rendered as YYYY-MM-DD whatever their display format.
func ReadXLSXFile(path string) (*Table, error) {
	f, err := excelize.OpenFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return NewTable(nil, nil)
	}
	return sheetToTable(f, sheets[0])
}

func sheetToTable(f *excelize.File, sheet string) (*Table, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows for sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return NewTable(nil, nil)
	}

	dates := newDateCells(f, sheet)
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	cells := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		out := make([]string, len(header))
		for j := range header {
			if j >= len(row) {
				continue
			}
			v, err := dates.render(j+1, i+2, row[j])
			if err != nil {
				return nil, err
			}
			out[j] = normalizeCell(v)
		}
		cells = append(cells, out)
	}
	return NewTable(header, cells)
}

// dateCells turns the serial numbers of date-formatted cells into dates. The
// verdict is cached per style id.
type dateCells struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newDateCells(f *excelize.File, sheet string) *dateCells {
	d := &dateCells{f: f, sheet: sheet, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

func (d *dateCells) render(col, row int, raw string) (string, error) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw, nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	styleID, err := d.f.GetCellStyle(d.sheet, cell)
	if err != nil {
		return "", fmt.Errorf("failed to get style of cell %s: %w", cell, err)
	}
	isDate, seen := d.styles[styleID]
	if !seen {
		style, err := d.f.GetStyle(styleID)
		if err != nil {
			return "", fmt.Errorf("failed to get style of cell %s: %w", cell, err)
		}
		isDate = isDateFormat(style)
		d.styles[styleID] = isDate
	}
	if !isDate {
		return raw, nil
	}
	t, err := excelize.ExcelDateToTime(serial, d.date1904)
	if err != nil {
		return "", fmt.Errorf("cell %s: %w", cell, err)
	}
	return t.Format(xlsxDateLayout), nil
}

// isDateFormat reports whether a style's number format renders a date. Built-in
// ids follow ECMA-376 18.8.30 plus the CJK date ids.
func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDatePattern(*style.CustomNumFmt)
	}
	switch id := style.NumFmt; {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDatePattern looks for day or year tokens outside quoted literals and
// bracketed sections such as colours and locales.
func isDatePattern(pattern string) bool {
	quoted, bracket := false, false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			i++
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '[':
			bracket = true
		case c == ']':
			bracket = false
		case bracket:
		case c == 'd' || c == 'D' || c == 'y' || c == 'Y':
			return true
		}
	}
	return false
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
