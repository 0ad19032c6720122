// Package filter derives views of a table. Source tables are never modified.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kjstillabower/stem-explorer/internal/models"
)

var (
	// ErrUnknownColumn is returned when a range names a column the table does not have.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNotNumeric is returned when a range targets a text or date column.
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrInvertedRange is returned when Low > High.
	ErrInvertedRange = errors.New("range low bound exceeds high bound")
)

// Range is an inclusive [Low, High] bound on one numeric column.
type Range struct {
	Column string  `json:"column"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
}

func (r Range) String() string {
	return fmt.Sprintf("%s in [%g, %g]", r.Column, r.Low, r.High)
}

// Contains reports whether v lies within the range, inclusive on both ends.
func (r Range) Contains(v float64) bool {
	return r.Low <= v && v <= r.High
}

// Query is the full set of filters for one request. Ranges compose with AND,
// then the keyword is applied to the remaining rows.
type Query struct {
	Ranges  []Range
	Keyword string
}

// Apply runs the query against t.
func (q Query) Apply(t models.Table) (models.Table, error) {
	out, err := ApplyRanges(t, q.Ranges...)
	if err != nil {
		return models.Table{}, err
	}
	return Keyword(out, q.Keyword), nil
}

// ApplyRanges keeps rows whose value in every ranged column lies within its bounds.
// Rows with a missing value in any ranged column are dropped. With no ranges the
// result holds every row in original order.
func ApplyRanges(t models.Table, ranges ...Range) (models.Table, error) {
	idx := make([]int, len(ranges))
	for i, r := range ranges {
		c := t.ColumnIndex(r.Column)
		if c < 0 {
			return models.Table{}, fmt.Errorf("%w: %q", ErrUnknownColumn, r.Column)
		}
		if !t.Columns[c].Kind.Numeric() {
			return models.Table{}, fmt.Errorf("%w: %q is %s", ErrNotNumeric, r.Column, t.Columns[c].Kind)
		}
		if r.Low > r.High {
			return models.Table{}, fmt.Errorf("%w: %s", ErrInvertedRange, r)
		}
		idx[i] = c
	}

	keep := make([]int, 0, len(t.Rows))
rows:
	for i, row := range t.Rows {
		for j, r := range ranges {
			cell := row[idx[j]]
			if cell.Missing || !r.Contains(cell.Num) {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	return t.View(keep), nil
}

// Keyword keeps rows where the keyword, case-folded, is a substring of the
// case-folded canonical text of at least one cell. Surrounding whitespace in the
// keyword is ignored and an empty keyword keeps every row.
func Keyword(t models.Table, keyword string) models.Table {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	keep := make([]int, 0, len(t.Rows))
	for i, row := range t.Rows {
		if needle == "" || rowContains(t.Columns, row, needle) {
			keep = append(keep, i)
		}
	}
	return t.View(keep)
}

func rowContains(cols []models.Column, row []models.Cell, needle string) bool {
	for j, cell := range row {
		if cell.Missing {
			continue
		}
		if strings.Contains(strings.ToLower(cell.Format(cols[j].Kind)), needle) {
			return true
		}
	}
	return false
}
