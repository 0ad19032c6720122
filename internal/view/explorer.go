package view

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/kjstillabower/stem-explorer/internal/dataset"
	"github.com/kjstillabower/stem-explorer/internal/filter"
)

// ErrInvalidFilter is returned for slider values that are not finite numbers.
var ErrInvalidFilter = errors.New("invalid filter value")

// Control is a slider with the bounds currently selected.
type Control struct {
	dataset.Slider
	Low  float64
	High float64
}

// LowParam is the query parameter carrying the lower bound.
func (c Control) LowParam() string { return "low_" + c.Param }

// HighParam is the query parameter carrying the upper bound.
func (c Control) HighParam() string { return "high_" + c.Param }

// Range returns the filter range selected by c.
func (c Control) Range() filter.Range {
	return filter.Range{Column: c.Column, Low: c.Low, High: c.High}
}

// ParseControls reads low_<param>/high_<param> for every slider of d. Absent or
// blank values default to the slider domain, values outside it are clamped and
// an inverted pair is swapped the way a two-handle slider would be.
func ParseControls(d *dataset.Dataset, q url.Values) ([]Control, error) {
	out := make([]Control, len(d.Sliders))
	for i, s := range d.Sliders {
		c := Control{Slider: s}
		lo, err := bound(q, c.LowParam(), s.Min)
		if err != nil {
			return nil, err
		}
		hi, err := bound(q, c.HighParam(), s.Max)
		if err != nil {
			return nil, err
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		c.Low = clamp(lo, s.Min, s.Max)
		c.High = clamp(hi, s.Min, s.Max)
		out[i] = c
	}
	return out, nil
}

// Query combines the controls into a filter query.
func Query(controls []Control) filter.Query {
	var q filter.Query
	for _, c := range controls {
		q.Ranges = append(q.Ranges, c.Range())
	}
	return q
}

// Encode writes the controls back as query parameters.
func Encode(controls []Control) url.Values {
	v := url.Values{}
	for _, c := range controls {
		v.Set(c.LowParam(), formatBound(c.Low))
		v.Set(c.HighParam(), formatBound(c.High))
	}
	return v
}

func bound(q url.Values, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidFilter, key, raw)
	}
	return f, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
