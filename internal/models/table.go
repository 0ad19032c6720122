package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the canonical text form of date cells.
const DateLayout = "2006-01-02"

// Kind is the inferred or declared type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "text"
	}
}

// Numeric reports whether cells of this kind carry a value in Cell.Num.
func (k Kind) Numeric() bool {
	return k == KindInteger || k == KindNumber
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column names a table column and its kind.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Cell holds one value. Which field is meaningful depends on the column kind.
// Integer cells keep the exact value in Int; Num holds its float64 form for
// range checks and charts.
type Cell struct {
	Missing bool
	Text    string
	Num     float64
	Int     int64
	Time    time.Time
}

func TextCell(s string) Cell    { return Cell{Text: s} }
func NumberCell(f float64) Cell { return Cell{Num: f} }
func IntCell(i int64) Cell      { return Cell{Num: float64(i), Int: i} }
func DateCell(t time.Time) Cell { return Cell{Time: t} }
func MissingCell() Cell         { return Cell{Missing: true} }

// Format returns the canonical text form of the cell for the given column kind.
// The same form is used for display, keyword matching and JSON output.
func (c Cell) Format(kind Kind) string {
	if c.Missing {
		return ""
	}
	switch kind {
	case KindInteger:
		return strconv.FormatInt(c.Int, 10)
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case KindDate:
		return c.Time.Format(DateLayout)
	default:
		return c.Text
	}
}

// Table is an immutable in-memory table. Derived views are new tables.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]Cell
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table has a column with the given name.
func (t Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// View returns a table holding copies of the rows at the given indexes, in that order.
func (t Table) View(rows []int) Table {
	out := Table{
		Name:    t.Name,
		Columns: t.Columns,
		Rows:    make([][]Cell, 0, len(rows)),
	}
	for _, i := range rows {
		row := make([]Cell, len(t.Rows[i]))
		copy(row, t.Rows[i])
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Strings returns the canonical text form of every row.
func (t Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = cell.Format(t.Columns[j].Kind)
		}
	}
	return out
}

// ColumnNames returns the header row.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Validate checks that every row has one cell per column.
func (t Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}

type tableJSON struct {
	Name    string     `json:"name,omitempty"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// MarshalJSON writes cells in their canonical text form.
func (t Table) MarshalJSON() ([]byte, error) {
	columns := t.Columns
	if columns == nil {
		columns = []Column{}
	}
	return json.Marshal(tableJSON{Name: t.Name, Columns: columns, Rows: t.Strings()})
}
