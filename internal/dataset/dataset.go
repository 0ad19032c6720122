// Package dataset holds the static STEM tables shown by the explorer.
package dataset

import (
	"fmt"
	"time"

	"github.com/kjstillabower/stem-explorer/internal/models"
)

// Slider describes a two-handle range control over one numeric column.
type Slider struct {
	Param  string // query parameter suffix, e.g. "energy" -> low_energy/high_energy
	Label  string
	Column string
	Min    float64
	Max    float64
	Step   float64
}

// BarSeries pairs a label column with a numeric value column for bar charts.
type BarSeries struct {
	Title       string
	LabelColumn string
	ValueColumn string
}

// Dataset is one explorable table with its controls.
type Dataset struct {
	Slug    string
	Title   string
	Heading string
	Table   models.Table
	Sliders []Slider
	Charts  []BarSeries
}

// Slider returns the slider with the given param.
func (d *Dataset) Slider(param string) (Slider, bool) {
	for _, s := range d.Sliders {
		if s.Param == param {
			return s, true
		}
	}
	return Slider{}, false
}

var registry = build()

// All returns the datasets in menu order.
func All() []*Dataset {
	out := make([]*Dataset, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a dataset by slug or title.
func Lookup(key string) (*Dataset, bool) {
	for _, d := range registry {
		if d.Slug == key || d.Title == key {
			return d, true
		}
	}
	return nil, false
}

// Default is the dataset selected when none is chosen.
func Default() *Dataset {
	return registry[0]
}

func build() []*Dataset {
	dates := dailyDates(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 5)

	physics := &Dataset{
		Slug:    "physics",
		Title:   "Physics Experiments",
		Heading: "Physics Experiment Data",
		Table: table("physics",
			[]models.Column{
				{Name: "Experiment", Kind: models.KindText},
				{Name: "Energy (MeV)", Kind: models.KindNumber},
				{Name: "Date", Kind: models.KindDate},
			},
			row(models.TextCell("Alpha Decay"), models.NumberCell(4.2), models.DateCell(dates[0])),
			row(models.TextCell("Beta Decay"), models.NumberCell(1.5), models.DateCell(dates[1])),
			row(models.TextCell("Gamma Ray Analysis"), models.NumberCell(2.9), models.DateCell(dates[2])),
			row(models.TextCell("Quark Study"), models.NumberCell(3.4), models.DateCell(dates[3])),
			row(models.TextCell("Higgs Boson"), models.NumberCell(7.1), models.DateCell(dates[4])),
		),
		Sliders: []Slider{
			{Param: "energy", Label: "Filter by Energy (MeV)", Column: "Energy (MeV)", Min: 0, Max: 10, Step: 0.1},
		},
		Charts: []BarSeries{
			{Title: "Energy by Experiment", LabelColumn: "Experiment", ValueColumn: "Energy (MeV)"},
		},
	}

	astronomy := &Dataset{
		Slug:    "astronomy",
		Title:   "Astronomy Observations",
		Heading: "Astronomy Observation Data",
		Table: table("astronomy",
			[]models.Column{
				{Name: "Celestial Object", Kind: models.KindText},
				{Name: "Brightness (Magnitude)", Kind: models.KindNumber},
				{Name: "Observation Date", Kind: models.KindDate},
			},
			row(models.TextCell("Mars"), models.NumberCell(-2.0), models.DateCell(dates[0])),
			row(models.TextCell("Venus"), models.NumberCell(-4.6), models.DateCell(dates[1])),
			row(models.TextCell("Jupiter"), models.NumberCell(-1.8), models.DateCell(dates[2])),
			row(models.TextCell("Saturn"), models.NumberCell(0.2), models.DateCell(dates[3])),
			row(models.TextCell("Moon"), models.NumberCell(-12.7), models.DateCell(dates[4])),
		),
		Sliders: []Slider{
			{Param: "brightness", Label: "Filter by Brightness (Magnitude)", Column: "Brightness (Magnitude)", Min: -15, Max: 5, Step: 0.1},
		},
		Charts: []BarSeries{
			{Title: "Brightness by Object", LabelColumn: "Celestial Object", ValueColumn: "Brightness (Magnitude)"},
		},
	}

	weather := &Dataset{
		Slug:    "weather",
		Title:   "Weather Data",
		Heading: "Weather Data",
		Table: table("weather",
			[]models.Column{
				{Name: "City", Kind: models.KindText},
				{Name: "Temperature (°C)", Kind: models.KindNumber},
				{Name: "Humidity (%)", Kind: models.KindInteger},
				{Name: "Recorded Date", Kind: models.KindDate},
			},
			row(models.TextCell("Cape Town"), models.NumberCell(25), models.IntCell(65), models.DateCell(dates[0])),
			row(models.TextCell("London"), models.NumberCell(10), models.IntCell(70), models.DateCell(dates[1])),
			row(models.TextCell("New York"), models.NumberCell(-3), models.IntCell(55), models.DateCell(dates[2])),
			row(models.TextCell("Tokyo"), models.NumberCell(15), models.IntCell(80), models.DateCell(dates[3])),
			row(models.TextCell("Sydney"), models.NumberCell(30), models.IntCell(50), models.DateCell(dates[4])),
		),
		Sliders: []Slider{
			{Param: "temperature", Label: "Filter by Temperature (°C)", Column: "Temperature (°C)", Min: -10, Max: 40, Step: 0.5},
			{Param: "humidity", Label: "Filter by Humidity (%)", Column: "Humidity (%)", Min: 0, Max: 100, Step: 1},
		},
		Charts: []BarSeries{
			{Title: "Temperature by City", LabelColumn: "City", ValueColumn: "Temperature (°C)"},
			{Title: "Humidity by City", LabelColumn: "City", ValueColumn: "Humidity (%)"},
		},
	}

	return []*Dataset{physics, astronomy, weather}
}

func table(name string, cols []models.Column, rows ...[]models.Cell) models.Table {
	t := models.Table{Name: name, Columns: cols, Rows: rows}
	if err := t.Validate(); err != nil {
		panic(fmt.Sprintf("dataset %s: %v", name, err))
	}
	return t
}

func row(cells ...models.Cell) []models.Cell {
	return cells
}

func dailyDates(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}
