// Package table implements the typed, columnar, in-memory row set used to
// build and parse a Tortilla footer. It plays the role a pandas DataFrame
// plays in the reference implementation, scoped down to the fixed set of
// value kinds the footer actually needs.
package table

import (
	"iter"

	"github.com/tacofoundation/tortilla/errs"
)

// Well-known closed columns present on every Tortilla footer row.
const (
	ColID     = "tortilla:id"
	ColOffset = "tortilla:offset"
	ColLength = "tortilla:length"
)

// Kind identifies the Go type backing a Column's values.
type Kind uint8

const (
	String Kind = iota + 1
	Int64
	Float64
	Bool
	Int64List
	Float64List
)

// Column is a single named, typed sequence of values, one per row.
type Column struct {
	Name string
	Kind Kind

	strings    []string
	ints       []int64
	floats     []float64
	bools      []bool
	intLists   [][]int64
	floatLists [][]float64
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case String:
		return len(c.strings)
	case Int64:
		return len(c.ints)
	case Float64:
		return len(c.floats)
	case Bool:
		return len(c.bools)
	case Int64List:
		return len(c.intLists)
	case Float64List:
		return len(c.floatLists)
	default:
		return 0
	}
}

// String returns the value at row i. Panics if the column is not of Kind String.
func (c *Column) String(i int) string { return c.strings[i] }

// Int64 returns the value at row i. Panics if the column is not of Kind Int64.
func (c *Column) Int64(i int) int64 { return c.ints[i] }

// Float64 returns the value at row i. Panics if the column is not of Kind Float64.
func (c *Column) Float64(i int) float64 { return c.floats[i] }

// Bool returns the value at row i. Panics if the column is not of Kind Bool.
func (c *Column) Bool(i int) bool { return c.bools[i] }

// Int64List returns the value at row i. Panics if the column is not of Kind Int64List.
func (c *Column) Int64List(i int) []int64 { return c.intLists[i] }

// Float64List returns the value at row i. Panics if the column is not of Kind Float64List.
func (c *Column) Float64List(i int) []float64 { return c.floatLists[i] }

// Table is an ordered set of equal-length, named columns plus a fixed row
// count. Column order is preserved as columns are added.
type Table struct {
	rows    int
	order   []string
	columns map[string]*Column
}

// New creates an empty Table.
func New() *Table {
	return &Table{columns: make(map[string]*Column)}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.rows }

// ColumnNames returns column names in insertion order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) *Column { return t.columns[name] }

// HasColumn reports whether name is present.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// AddColumn appends a fully-populated column to the table. Its length must
// match the table's existing row count (or set it, if this is the first
// column added). Replaces an existing column of the same name.
func (t *Table) AddColumn(c *Column) error {
	if t.rows == 0 && len(t.order) == 0 {
		t.rows = c.Len()
	} else if c.Len() != t.rows {
		return errs.ErrInvalidSample
	}

	if _, exists := t.columns[c.Name]; !exists {
		t.order = append(t.order, c.Name)
	}
	t.columns[c.Name] = c

	return nil
}

// DropColumn removes a column by name. A no-op if the column is absent.
func (t *Table) DropColumn(name string) {
	if _, ok := t.columns[name]; !ok {
		return
	}
	delete(t.columns, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// RenameColumn renames a column in place, preserving its position.
func (t *Table) RenameColumn(oldName, newName string) error {
	c, ok := t.columns[oldName]
	if !ok {
		return errs.ErrInvalidSample
	}
	c.Name = newName
	delete(t.columns, oldName)
	t.columns[newName] = c
	for i, n := range t.order {
		if n == oldName {
			t.order[i] = newName
			break
		}
	}

	return nil
}

// Rows yields row indices in order, for range-over-func iteration.
func (t *Table) Rows() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < t.rows; i++ {
			if !yield(i) {
				return
			}
		}
	}
}

// Filter returns a new Table containing only the rows for which keep
// returns true, preserving column order and types.
func (t *Table) Filter(keep func(row int) bool) *Table {
	out := New()
	keepRows := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if keep(i) {
			keepRows = append(keepRows, i)
		}
	}

	for _, name := range t.order {
		src := t.columns[name]
		dst := &Column{Name: name, Kind: src.Kind}
		switch src.Kind {
		case String:
			dst.strings = make([]string, len(keepRows))
			for j, r := range keepRows {
				dst.strings[j] = src.strings[r]
			}
		case Int64:
			dst.ints = make([]int64, len(keepRows))
			for j, r := range keepRows {
				dst.ints[j] = src.ints[r]
			}
		case Float64:
			dst.floats = make([]float64, len(keepRows))
			for j, r := range keepRows {
				dst.floats[j] = src.floats[r]
			}
		case Bool:
			dst.bools = make([]bool, len(keepRows))
			for j, r := range keepRows {
				dst.bools[j] = src.bools[r]
			}
		case Int64List:
			dst.intLists = make([][]int64, len(keepRows))
			for j, r := range keepRows {
				dst.intLists[j] = src.intLists[r]
			}
		case Float64List:
			dst.floatLists = make([][]float64, len(keepRows))
			for j, r := range keepRows {
				dst.floatLists[j] = src.floatLists[r]
			}
		}
		out.order = append(out.order, name)
		out.columns[name] = dst
	}
	out.rows = len(keepRows)

	return out
}

// NewStringColumn builds a String column.
func NewStringColumn(name string, values []string) *Column {
	return &Column{Name: name, Kind: String, strings: values}
}

// NewInt64Column builds an Int64 column.
func NewInt64Column(name string, values []int64) *Column {
	return &Column{Name: name, Kind: Int64, ints: values}
}

// NewFloat64Column builds a Float64 column.
func NewFloat64Column(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Float64, floats: values}
}

// NewBoolColumn builds a Bool column.
func NewBoolColumn(name string, values []bool) *Column {
	return &Column{Name: name, Kind: Bool, bools: values}
}

// NewInt64ListColumn builds an Int64List column.
func NewInt64ListColumn(name string, values [][]int64) *Column {
	return &Column{Name: name, Kind: Int64List, intLists: values}
}

// NewFloat64ListColumn builds a Float64List column.
func NewFloat64ListColumn(name string, values [][]float64) *Column {
	return &Column{Name: name, Kind: Float64List, floatLists: values}
}
