package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/stem-explorer/internal/dataset"
)

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the built-in datasets and their range filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrinter(cmd.OutOrStdout())
			p.Heading("Datasets")
			var rows [][]string
			for _, d := range dataset.All() {
				var sliders []string
				for _, s := range d.Sliders {
					sliders = append(sliders, fmt.Sprintf("%s=%g:%g", s.Param, s.Min, s.Max))
				}
				rows = append(rows, []string{d.Slug, d.Title, fmt.Sprint(d.Table.Len()), strings.Join(sliders, " ")})
			}
			return p.Rows([]string{"SLUG", "TITLE", "ROWS", "RANGES"}, rows)
		},
	}
}
