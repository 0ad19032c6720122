package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kjstillabower/stem-explorer/internal/dataset"
	"github.com/kjstillabower/stem-explorer/internal/filter"
	"github.com/kjstillabower/stem-explorer/internal/service"
	"github.com/kjstillabower/stem-explorer/internal/view"
)

func newShowCmd() *cobra.Command {
	var ranges []string
	var keyword string

	cmd := &cobra.Command{
		Use:   "show <dataset>",
		Short: "Print a dataset filtered by inclusive ranges",
		Example: `  explorer show physics --range energy=2:5
  explorer show weather --range temperature=0: --range humidity=:70 --keyword o`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := dataset.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown dataset %q (see 'explorer datasets')", args[0])
			}
			values, err := rangeValues(d, ranges)
			if err != nil {
				return err
			}
			controls, err := view.ParseControls(d, values)
			if err != nil {
				return err
			}

			q := view.Query(controls)
			q.Keyword = strings.TrimSpace(keyword)
			v, err := service.NewExplorer().Explore(cmd.Context(), d, q)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			p.Heading(v.Heading)
			p.Note("%s, %d of %d rows", describeRanges(v.Ranges), v.Matching, v.Total)
			if v.Matching == 0 {
				p.Note("No rows match the current filters.")
				return nil
			}
			return p.Table(v.Table)
		},
	}
	cmd.Flags().StringArrayVar(&ranges, "range", nil, "range filter as <param>=<low>:<high>; either bound may be blank")
	cmd.Flags().StringVar(&keyword, "keyword", "", "keep rows containing this text (case-insensitive)")
	return cmd
}

// rangeValues turns --range flags into the query parameters the web form sends.
func rangeValues(d *dataset.Dataset, ranges []string) (url.Values, error) {
	values := url.Values{}
	for _, r := range ranges {
		param, bounds, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("range %q: want <param>=<low>:<high>", r)
		}
		s, ok := d.Slider(strings.TrimSpace(param))
		if !ok {
			return nil, fmt.Errorf("range %q: %s has no %q filter", r, d.Slug, param)
		}
		lo, hi, ok := strings.Cut(bounds, ":")
		if !ok {
			return nil, fmt.Errorf("range %q: want <param>=<low>:<high>", r)
		}
		c := view.Control{Slider: s}
		values.Set(c.LowParam(), strings.TrimSpace(lo))
		values.Set(c.HighParam(), strings.TrimSpace(hi))
	}
	return values, nil
}

func describeRanges(ranges []filter.Range) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, "; ")
}
