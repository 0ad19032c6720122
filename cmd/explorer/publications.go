package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/stem-explorer/internal/cache"
	"github.com/kjstillabower/stem-explorer/internal/service"
	"github.com/kjstillabower/stem-explorer/internal/tabular"
	"github.com/kjstillabower/stem-explorer/internal/trend"
)

func newPublicationsCmd() *cobra.Command {
	var keyword, chartPath string

	cmd := &cobra.Command{
		Use:   "publications <file.csv>",
		Short: "Filter a publications CSV and count entries per Year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			pubs := service.NewPublications(cache.NewInMemoryCache(1), service.PublicationsConfig{
				MaxBytes: tabular.DefaultMaxBytes,
				TTL:      time.Hour,
			})
			up, err := pubs.Upload(ctx, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			v, err := pubs.View(ctx, up.ID, strings.TrimSpace(keyword))
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.Heading(v.Heading)
			p.Note("%s: %d of %d rows", v.Filename, v.Table.Len(), v.Total)
			if err := p.Table(v.Table); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			p.Heading("Publications per Year")
			if !v.HasYear {
				p.Note("%s", v.Notice)
				return nil
			}
			rows := make([][]string, len(v.Trend))
			for i, yc := range v.Trend {
				rows[i] = []string{yc.Year, fmt.Sprint(yc.Count)}
			}
			if err := p.Rows([]string{"YEAR", "COUNT"}, rows); err != nil {
				return err
			}
			p.Note("%d of %d rows have a Year", trend.Total(v.Trend), v.Total)

			if chartPath == "" {
				return nil
			}
			png, err := pubs.TrendChart(ctx, up.ID)
			if errors.Is(err, trend.ErrNoYearColumn) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(chartPath, png, 0o644); err != nil {
				return err
			}
			p.Note("chart written to %s", chartPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyword, "keyword", "", "keep rows containing this text (case-insensitive)")
	cmd.Flags().StringVar(&chartPath, "chart", "", "also write the Year trend chart as PNG to this path")
	return cmd
}
