package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/refty/hamcounter/internal/domain"
	"github.com/refty/hamcounter/internal/wheel"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		from, to string
		duration time.Duration
		speed    float64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Record a single rotation",
		Long: `Record a single rotation. Either pass --from and --to, or --duration to
record a rotation that ended now. Speed defaults to the speed implied by the
wheel circumference.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := opts.span(from, to, duration)
			if err != nil {
				return err
			}
			elapsed := end.Sub(start)
			if !cmd.Flags().Changed("speed") {
				speed = wheel.Speed(wheel.DefaultCircumference, elapsed)
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			stored, err := c.CreateRun(cmd.Context(), domain.Run{
				From:    start,
				To:      end,
				Seconds: elapsed.Seconds(),
				Speed:   speed,
			})
			if err != nil {
				return fmt.Errorf("record run: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), stored)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "rotation start (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "rotation end (RFC 3339)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "rotation length ending now")
	cmd.Flags().Float64Var(&speed, "speed", 0, "speed in km/h")
	return cmd
}

func newSprintCmd(opts *rootOptions) *cobra.Command {
	var (
		from, to string
		duration time.Duration
		count    int
		speed    float64
	)

	cmd := &cobra.Command{
		Use:   "sprint",
		Short: "Record a sprint of consecutive rotations",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := opts.span(from, to, duration)
			if err != nil {
				return err
			}
			if count < 0 {
				return fmt.Errorf("--count must not be negative")
			}

			c, err := opts.client()
			if err != nil {
				return err
			}
			stored, err := c.CreateSprint(cmd.Context(), domain.Sprint{
				From:         start,
				To:           end,
				Count:        count,
				AverageSpeed: speed,
			})
			if err != nil {
				return fmt.Errorf("record sprint: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), stored)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "sprint start (RFC 3339)")
	cmd.Flags().StringVar(&to, "to", "", "sprint end (RFC 3339)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "sprint length ending now")
	cmd.Flags().IntVar(&count, "count", 1, "rotations in the sprint")
	cmd.Flags().Float64Var(&speed, "speed", 0, "average speed in km/h")
	return cmd
}

// span resolves either an explicit --from/--to pair or a duration ending now.
func (o *rootOptions) span(from, to string, duration time.Duration) (time.Time, time.Time, error) {
	if from == "" && to == "" {
		if duration <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("either --from and --to or a positive --duration is required")
		}
		end := time.Now().UTC()
		return end.Add(-duration), end, nil
	}

	loc, err := o.location()
	if err != nil {
		return time.Time{}, time.Time{}, err
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

// parseTime accepts RFC 3339 timestamps and bare dates, which are read as
// local midnight in loc.
func parseTime(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("value is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", value)
	}
	return t.UTC(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
