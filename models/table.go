package models

import "strings"

// Table is a generic, fully materialized dataset. Every cell is text and the
// empty string stands for a missing value.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable creates an empty table with the given header.
func NewTable(columns []string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

// TrimColumns strips surrounding whitespace from every column name.
func (t *Table) TrimColumns() {
	for i, c := range t.Columns {
		t.Columns[i] = strings.TrimSpace(c)
	}
	t.reindex()
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[col]; ok {
		return i
	}
	return -1
}

// Has reports whether col is one of the table's columns.
func (t *Table) Has(col string) bool {
	return t.Index(col) >= 0
}

// Value returns the cell at (row, col), or "" when the column is absent or
// the row is short.
func (t *Table) Value(row int, col string) string {
	i := t.Index(col)
	if i < 0 || row < 0 || row >= len(t.Rows) || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// Len is the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// AddColumn appends a column, filling each row from fn.
func (t *Table) AddColumn(name string, fn func(row int) string) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], fn(i))
	}
	t.reindex()
}
