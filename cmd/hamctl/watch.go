package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/refty/hamcounter/internal/domain"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live rotations and heartbeats until interrupted",
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

			err = c.Watch(cmd.Context(), func(r domain.Running) {
				if asJSON {
					_ = printJSON(out, r)
					return
				}
				if r.From.Equal(r.To) {
					fmt.Fprintf(out, "%s  total=%d\n", r.To.In(loc).Format(time.TimeOnly), r.TotalCount)
					return
				}
				fmt.Fprintf(out, "%s  total=%d  %.2fs  %.2f km/h\n",
					r.To.In(loc).Format(time.TimeOnly), r.TotalCount, r.Seconds, r.Speed)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print each message as JSON")
	return cmd
}
