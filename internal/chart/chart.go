// Package chart renders bar charts as PNG images.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

// Bar is one labelled bar.
type Bar struct {
	Label string
	Value float64
}

// Options control image size. Zero values use defaults.
type Options struct {
	Width    int
	Height   int
	BarWidth int
	YLabel   string
}

const (
	defaultWidth    = 720
	defaultHeight   = 360
	defaultBarWidth = 48
	barSpacing      = 16
	sidePadding     = 120
)

// Bars builds bars from parallel label and value slices.
func Bars(labels []string, values []float64) []Bar {
	n := len(labels)
	if len(values) < n {
		n = len(values)
	}
	out := make([]Bar, n)
	for i := 0; i < n; i++ {
		out[i] = Bar{Label: labels[i], Value: values[i]}
	}
	return out
}

// RenderBar draws bars in the given order and returns the PNG bytes. Bars grow
// from zero, so negative values point down.
func RenderBar(title string, bars []Bar, opts Options) ([]byte, error) {
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	opts = withDefaults(opts, len(bars))

	values := make([]gochart.Value, len(bars))
	lo, hi := 0.0, 0.0
	for i, b := range bars {
		if math.IsNaN(b.Value) || math.IsInf(b.Value, 0) {
			return nil, fmt.Errorf("bar %q: value is not finite", b.Label)
		}
		values[i] = gochart.Value{Label: b.Label, Value: b.Value}
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}
	if lo == hi {
		hi = lo + 1
	}

	graph := gochart.BarChart{
		Title:        title,
		Background:   gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:        opts.Width,
		Height:       opts.Height,
		BarWidth:     opts.BarWidth,
		BarSpacing:   barSpacing,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: gochart.YAxis{
			Name:  opts.YLabel,
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

func withDefaults(opts Options, n int) Options {
	if opts.Height <= 0 {
		opts.Height = defaultHeight
	}
	if opts.BarWidth <= 0 {
		opts.BarWidth = defaultBarWidth
	}
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	if need := n*(opts.BarWidth+barSpacing) + sidePadding; opts.Width < need {
		opts.Width = need
	}
	return opts
}
