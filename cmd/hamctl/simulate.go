package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/refty/hamcounter/internal/wheel"
)

type simulateOptions struct {
	speed         float64
	circumference float64
	duration      time.Duration
	breakGap      time.Duration
	minSprint     int
	poll          time.Duration
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	sim := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive a simulated wheel and submit its rotations",
		Long: `Spin a virtual wheel at a constant speed for the given duration, detect
rotations exactly as the sensor daemon does, and submit each run and the
closing sprint to the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sim.speed <= 0 {
				return fmt.Errorf("--speed must be positive")
			}
			if sim.circumference <= 0 {
				return fmt.Errorf("--circumference must be positive")
			}

			c, err := opts.client()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if sim.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, sim.duration)
				defer cancel()
			}

			clock := clockwork.NewRealClock()
			sampler := wheel.NewSimulatedWheel(clock, sim.circumference, sim.speed)
			monitor := wheel.NewMonitor(wheel.MonitorConfig{
				Sampler:      sampler,
				Sink:         c,
				Clock:        clock,
				PollInterval: sim.poll,
				Tracker:      wheel.NewTracker(sim.circumference, wheel.DefaultIdleTimeout),
				Sprints:      wheel.NewSprintBuilder(sim.breakGap, sim.minSprint),
			})

			slog.Info("Simulating wheel",
				"speed_kmh", sim.speed,
				"period", sampler.Period(),
				"duration", sim.duration,
				"server", opts.server)
			fmt.Fprintf(cmd.OutOrStdout(), "spinning at %.1f km/h (one rotation every %s)\n", sim.speed, sampler.Period())

			return monitor.Run(ctx)
		},
	}

	cmd.Flags().Float64Var(&sim.speed, "speed", 2.0, "wheel speed in km/h")
	cmd.Flags().Float64Var(&sim.circumference, "circumference", wheel.DefaultCircumference, "wheel circumference in metres")
	cmd.Flags().DurationVar(&sim.duration, "duration", 30*time.Second, "how long to run; 0 runs until interrupted")
	cmd.Flags().DurationVar(&sim.breakGap, "break-gap", wheel.DefaultBreakGap, "pause that ends a sprint")
	cmd.Flags().IntVar(&sim.minSprint, "min-sprint", 1, "minimum rotations for a sprint to be submitted")
	cmd.Flags().DurationVar(&sim.poll, "poll", wheel.DefaultPollInterval, "sensor poll interval")
	return cmd
}
