package tabular

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is returned for row accesses outside [0, NumRows).
var ErrIndexOutOfRange = errors.New("row index out of range")

// Table is an ordered collection of rows over a fixed set of named
// columns. Column order is preserved from the source and reflected in
// every Record view.
type Table struct {
	cols     []string
	colIndex map[string]int
	rows     [][]Value
}

// NewTable creates an empty table with the given column order.
// Duplicate column names are rejected.
func NewTable(columns []string) (*Table, error) {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		idx[c] = i
	}
	return &Table{
		cols:     append([]string(nil), columns...),
		colIndex: idx,
	}, nil
}

// Columns returns the column names in order. The returned slice must
// not be modified.
func (t *Table) Columns() []string {
	return t.cols
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIndex[name]
	return ok
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.rows)
}

// AppendRow adds a row. The value count must match the column count.
func (t *Table) AppendRow(values []Value) error {
	if len(values) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.cols))
	}
	t.rows = append(t.rows, append([]Value(nil), values...))
	return nil
}

// AddColumn appends a new column filled with the given value on every
// existing row. Adding an already-present column is an error.
func (t *Table) AddColumn(name string, fill Value) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	t.colIndex[name] = len(t.cols)
	t.cols = append(t.cols, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], fill)
	}
	return nil
}

// Cell returns the value at (row, column). The second return is false
// when the column does not exist.
func (t *Table) Cell(row int, column string) (Value, bool) {
	ci, ok := t.colIndex[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return Value{}, false
	}
	return t.rows[row][ci], true
}

// SetCell overwrites the value at (row, column).
func (t *Table) SetCell(row int, column string, v Value) error {
	ci, ok := t.colIndex[column]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	if row < 0 || row >= len(t.rows) {
		return fmt.Errorf("%w: %d (table has %d rows)", ErrIndexOutOfRange, row, len(t.rows))
	}
	t.rows[row][ci] = v
	return nil
}

// Row returns a read-only view of one row.
func (t *Table) Row(i int) (Record, error) {
	if i < 0 || i >= len(t.rows) {
		return Record{}, fmt.Errorf("%w: %d (table has %d rows)", ErrIndexOutOfRange, i, len(t.rows))
	}
	return Record{cols: t.cols, colIndex: t.colIndex, values: t.rows[i]}, nil
}

// Record is an ordered column-to-value view of a single row.
type Record struct {
	cols     []string
	colIndex map[string]int
	values   []Value
}

// Columns returns the column names in table order.
func (r Record) Columns() []string {
	return r.cols
}

// Get returns the value for the named column.
func (r Record) Get(column string) (Value, bool) {
	ci, ok := r.colIndex[column]
	if !ok {
		return Value{}, false
	}
	return r.values[ci], true
}

// Map returns the row as a column-to-value mapping. Order is not
// preserved; use Columns for ordered iteration.
func (r Record) Map() map[string]Value {
	m := make(map[string]Value, len(r.cols))
	for i, c := range r.cols {
		m[c] = r.values[i]
	}
	return m
}
