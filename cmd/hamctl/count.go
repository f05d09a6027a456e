package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/refty/hamcounter/internal/domain"
)

func newCountCmd(opts *rootOptions) *cobra.Command {
	var (
		from, to string
		day      string
	)

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count rotations in a range, or today when no range is given",
		Example: `  hamctl count
  hamctl count --day 2026-03-14
  hamctl count --from 2026-03-14T08:00:00+09:00 --to 2026-03-14T20:00:00+09:00`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			loc, err := opts.location()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if from == "" && to == "" && day == "" {
				today, err := c.Today(cmd.Context())
				if err != nil {
					return fmt.Errorf("count today: %w", err)
				}
				_, err = fmt.Fprintf(out, "%d rotations on %s\n", today.Count, today.From.In(loc).Format(time.DateOnly))
				return err
			}

			start, end, err := countRange(from, to, day, loc)
			if err != nil {
				return err
			}
			n, err := c.CountRuns(cmd.Context(), start, end)
			if err != nil {
				return fmt.Errorf("count runs: %w", err)
			}
			_, err = fmt.Fprintf(out, "%d rotations between %s and %s\n", n,
				start.In(loc).Format(time.RFC3339), end.In(loc).Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "range start (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "range end, inclusive (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&day, "day", "", "count a whole local calendar day (YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("day", "from")
	cmd.MarkFlagsMutuallyExclusive("day", "to")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}

func countRange(from, to, day string, loc *time.Location) (time.Time, time.Time, error) {
	if day != "" {
		d, err := time.ParseInLocation(time.DateOnly, day, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--day: %q is not YYYY-MM-DD", day)
		}
		start, end := domain.DayBounds(d, loc)
		return start, domain.LastInstant(end), nil
	}

	start, err := parseTime(from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	end, err := parseTime(to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must not be before --from")
	}
	return start, end, nil
}
