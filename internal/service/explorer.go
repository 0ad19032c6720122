package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/stem-explorer/internal/chart"
	"github.com/kjstillabower/stem-explorer/internal/dataset"
	"github.com/kjstillabower/stem-explorer/internal/filter"
	"github.com/kjstillabower/stem-explorer/internal/models"
	"github.com/kjstillabower/stem-explorer/internal/observability"
)

// ErrUnknownSeries is returned for a chart index the dataset does not define.
var ErrUnknownSeries = errors.New("unknown chart series")

// Explorer serves filtered views of the built-in STEM datasets.
type Explorer struct{}

// NewExplorer creates an Explorer.
func NewExplorer() *Explorer {
	return &Explorer{}
}

// ExplorerView is one dataset filtered by its sliders.
type ExplorerView struct {
	Dataset  *dataset.Dataset `json:"-"`
	Slug     string           `json:"dataset"`
	Heading  string           `json:"heading"`
	Ranges   []filter.Range   `json:"filters"`
	Table    models.Table     `json:"table"`
	Total    int              `json:"total"`
	Matching int              `json:"matching"`
}

// Explore applies q to d's table. The dataset itself is never modified.
func (e *Explorer) Explore(ctx context.Context, d *dataset.Dataset, q filter.Query) (ExplorerView, error) {
	out, err := q.Apply(d.Table)
	if err != nil {
		return ExplorerView{}, fmt.Errorf("filter %s: %w", d.Slug, err)
	}
	observability.DatasetQueriesTotal.WithLabelValues(d.Slug).Inc()
	observability.RecordFilter(d.Slug, out.Len())

	if l := observability.LoggerFromContext(ctx); l != nil {
		l.Debug("dataset filtered",
			zap.String("dataset", d.Slug),
			zap.Stringers("ranges", q.Ranges),
			zap.Int("rows", out.Len()),
		)
	}
	return ExplorerView{
		Dataset:  d,
		Slug:     d.Slug,
		Heading:  d.Heading,
		Ranges:   q.Ranges,
		Table:    out,
		Total:    d.Table.Len(),
		Matching: out.Len(),
	}, nil
}

// Chart renders bar chart series of d over the rows left by q, in row order.
// Rows with a missing label or value are skipped.
func (e *Explorer) Chart(ctx context.Context, d *dataset.Dataset, q filter.Query, series int) ([]byte, error) {
	if series < 0 || series >= len(d.Charts) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeries, series)
	}
	s := d.Charts[series]
	view, err := e.Explore(ctx, d, q)
	if err != nil {
		return nil, err
	}
	bars, err := seriesBars(view.Table, s)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	png, err := chart.RenderBar(s.Title, bars, chart.Options{YLabel: s.ValueColumn})
	observability.ChartRenderDuration.WithLabelValues("dataset").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("render %s chart: %w", d.Slug, err)
	}
	return png, nil
}

func seriesBars(t models.Table, s dataset.BarSeries) ([]chart.Bar, error) {
	li, vi := t.ColumnIndex(s.LabelColumn), t.ColumnIndex(s.ValueColumn)
	if li < 0 || vi < 0 {
		return nil, fmt.Errorf("%w: %s/%s", filter.ErrUnknownColumn, s.LabelColumn, s.ValueColumn)
	}
	labelKind := t.Columns[li].Kind
	bars := make([]chart.Bar, 0, t.Len())
	for _, row := range t.Rows {
		if row[li].Missing || row[vi].Missing {
			continue
		}
		bars = append(bars, chart.Bar{Label: row[li].Format(labelKind), Value: row[vi].Num})
	}
	return bars, nil
}
