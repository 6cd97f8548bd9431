package registry

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrUnknownColumn   = errors.New("unknown column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrRaggedRow       = errors.New("row width differs from header")
)

// Table is an in-memory registry export: ordered columns over row-major string
// cells. An empty cell is null.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// Row is one table row keyed by column name. Null cells are absent.
type Row map[string]string

// Get returns the cell for col and whether it is non-null.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	return v, ok && v != ""
}

// ColumnNulls is one line of a null analysis.
type ColumnNulls struct {
	Column string  `json:"column"`
	Nulls  int     `json:"nulls"`
	Ratio  float64 `json:"ratio"`
}

func NewTable(columns []string, rows [][]string) (*Table, error) {
	t := &Table{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    make([][]string, 0, len(rows)),
	}
	for _, col := range columns {
		if _, ok := t.index[col]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col)
		}
		t.index[col] = len(t.columns)
		t.columns = append(t.columns, col)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, header has %d", ErrRaggedRow, i, len(row), len(columns))
		}
		cells := make([]string, len(row))
		copy(cells, row)
		t.rows = append(t.rows, cells)
	}
	return t, nil
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the cell at row i of col and whether it is non-null.
func (t *Table) Value(i int, col string) (string, bool) {
	j, ok := t.index[col]
	if !ok || i < 0 || i >= len(t.rows) {
		return "", false
	}
	v := t.rows[i][j]
	return v, v != ""
}

func (t *Table) Row(i int) Row {
	row := make(Row, len(t.columns))
	for j, col := range t.columns {
		if v := t.rows[i][j]; v != "" {
			row[col] = v
		}
	}
	return row
}

func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.rows))
	for i := range t.rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// Column returns a copy of every cell in col.
func (t *Table) Column(col string) ([]string, error) {
	j, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Slice returns rows [start, start+n) as a new table. The result does not
// share cell storage with t.
func (t *Table) Slice(start, n int) *Table {
	if start < 0 {
		start = 0
	}
	end := start + n
	if end > len(t.rows) {
		end = len(t.rows)
	}
	if start > end {
		start = end
	}
	out := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.index)),
		rows:    make([][]string, 0, end-start),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for _, row := range t.rows[start:end] {
		cells := make([]string, len(row))
		copy(cells, row)
		out.rows = append(out.rows, cells)
	}
	return out
}

// column returns the index of name, adding an all-null column when create is
// set and the column does not exist yet.
func (t *Table) column(name string, create bool) (int, error) {
	if j, ok := t.index[name]; ok {
		return j, nil
	}
	if !create {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	j := len(t.columns)
	t.columns = append(t.columns, name)
	t.index[name] = j
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
	return j, nil
}

// MapColumn writes fn(from) into to, creating to when needed. Null cells stay
// null and fn is not called for them.
func (t *Table) MapColumn(from, to string, fn func(string) (string, error)) error {
	return t.MapColumnRows(from, to, func(_ int, v string) (string, error) {
		return fn(v)
	})
}

// MapColumnRows is MapColumn with the row index passed to fn.
func (t *Table) MapColumnRows(from, to string, fn func(i int, v string) (string, error)) error {
	src, err := t.column(from, false)
	if err != nil {
		return err
	}
	dst, err := t.column(to, true)
	if err != nil {
		return err
	}
	for i, row := range t.rows {
		v := row[src]
		if v == "" {
			row[dst] = ""
			continue
		}
		out, err := fn(i, v)
		if err != nil {
			return fmt.Errorf("column %s, row %d: %w", from, i, err)
		}
		row[dst] = out
	}
	return nil
}

// MapColumnDict maps from through dict into to. Values missing from dict
// become null.
func (t *Table) MapColumnDict(from, to string, dict map[string]string) error {
	return t.MapColumn(from, to, func(v string) (string, error) {
		return dict[v], nil
	})
}

// EnsureColumn adds name as an all-null column if it does not exist.
func (t *Table) EnsureColumn(name string) {
	_, _ = t.column(name, true)
}

func (t *Table) FillNull(col, value string) error {
	j, err := t.column(col, false)
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		if row[j] == "" {
			row[j] = value
		}
	}
	return nil
}

// AddIDColumn sets name to prefix+row index ("0".."n-1" for an empty prefix),
// replacing any existing values.
func (t *Table) AddIDColumn(name, prefix string) {
	j, _ := t.column(name, true)
	for i, row := range t.rows {
		row[j] = prefix + strconv.Itoa(i)
	}
}

func (t *Table) DropColumn(name string) error {
	j, err := t.column(name, false)
	if err != nil {
		return err
	}
	t.columns = append(t.columns[:j], t.columns[j+1:]...)
	for i, row := range t.rows {
		t.rows[i] = append(row[:j], row[j+1:]...)
	}
	t.reindex()
	return nil
}

// DropNullColumns removes columns that are entirely null (allNull) or contain
// any null (anyNull) and returns the dropped names in column order.
func (t *Table) DropNullColumns(allNull, anyNull bool) []string {
	if !allNull && !anyNull {
		return nil
	}
	var dropped []string
	for _, stat := range t.NullAnalysis() {
		full := len(t.rows) > 0 && stat.Nulls == len(t.rows)
		if (allNull && full) || (anyNull && stat.Nulls > 0) {
			dropped = append(dropped, stat.Column)
		}
	}
	for _, col := range dropped {
		_ = t.DropColumn(col)
	}
	return dropped
}

// DeleteRows removes the rows at the given indexes. Out of range indexes are
// ignored.
func (t *Table) DeleteRows(indexes []int) {
	if len(indexes) == 0 {
		return
	}
	drop := make(map[int]struct{}, len(indexes))
	for _, i := range indexes {
		drop[i] = struct{}{}
	}
	kept := t.rows[:0]
	for i, row := range t.rows {
		if _, ok := drop[i]; !ok {
			kept = append(kept, row)
		}
	}
	t.rows = kept
}

func (t *Table) NullAnalysis() []ColumnNulls {
	stats := make([]ColumnNulls, len(t.columns))
	for j, col := range t.columns {
		stats[j].Column = col
		for _, row := range t.rows {
			if row[j] == "" {
				stats[j].Nulls++
			}
		}
		if len(t.rows) > 0 {
			stats[j].Ratio = float64(stats[j].Nulls) / float64(len(t.rows))
		}
	}
	return stats
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for j, col := range t.columns {
		t.index[col] = j
	}
}
