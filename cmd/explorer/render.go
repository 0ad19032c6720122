package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/kjstillabower/stem-explorer/internal/models"
)

// printer writes headings and aligned tables. Styling follows the color profile
// of the destination, so piped output stays plain.
type printer struct {
	out     io.Writer
	heading lipgloss.Style
	muted   lipgloss.Style
}

func newPrinter(out io.Writer) *printer {
	r := lipgloss.NewRenderer(out)
	return &printer{
		out:     out,
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#8a8f98")),
	}
}

func (p *printer) Heading(s string) {
	fmt.Fprintln(p.out, p.heading.Render(s))
}

func (p *printer) Note(format string, args ...any) {
	fmt.Fprintln(p.out, p.muted.Render(fmt.Sprintf(format, args...)))
}

func (p *printer) Table(t models.Table) error {
	return p.Rows(t.ColumnNames(), t.Strings())
}

func (p *printer) Rows(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
