// Package trend counts publications per year.
package trend

import (
	"errors"
	"sort"

	"github.com/kjstillabower/stem-explorer/internal/models"
)

// YearColumn is the column publication trends are computed from.
const YearColumn = "Year"

// ErrNoYearColumn is returned when the table has no Year column.
var ErrNoYearColumn = errors.New("the CSV does not have a 'Year' column to visualize trends")

// YearCount is the number of rows for one Year value.
type YearCount struct {
	Year  string `json:"year"`
	Count int    `json:"count"`
}

// YearCounts counts rows per present Year value, ordered by year. Numeric year
// columns sort numerically; any other kind sorts by its text form.
func YearCounts(t models.Table) ([]YearCount, error) {
	idx := t.ColumnIndex(YearColumn)
	if idx < 0 {
		return nil, ErrNoYearColumn
	}
	kind := t.Columns[idx].Kind

	counts := make(map[string]int)
	keys := make(map[string]models.Cell)
	for _, row := range t.Rows {
		cell := row[idx]
		if cell.Missing {
			continue
		}
		label := cell.Format(kind)
		if _, ok := counts[label]; !ok {
			keys[label] = cell
		}
		counts[label]++
	}

	out := make([]YearCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, YearCount{Year: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := keys[out[i].Year], keys[out[j].Year]
		switch kind {
		case models.KindInteger:
			return a.Int < b.Int
		case models.KindNumber:
			return a.Num < b.Num
		}
		return out[i].Year < out[j].Year
	})
	return out, nil
}

// Total returns the sum of all counts.
func Total(counts []YearCount) int {
	n := 0
	for _, c := range counts {
		n += c.Count
	}
	return n
}

// Series splits counts into chart labels and values.
func Series(counts []YearCount) ([]string, []float64) {
	labels := make([]string, len(counts))
	values := make([]float64, len(counts))
	for i, c := range counts {
		labels[i] = c.Year
		values[i] = float64(c.Count)
	}
	return labels, values
}
