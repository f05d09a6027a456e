package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/refty/hamcounter/internal/client"
	"github.com/refty/hamcounter/internal/platform/logging"
)

const defaultServer = "http://localhost:8000"

type rootOptions struct {
	server    string
	timezone  string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "hamctl",
		Short:        "Record and watch hamster wheel activity",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat))
		},
	}

	server := os.Getenv("HAMCTL_SERVER")
	if server == "" {
		server = defaultServer
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", server, "hamcounter base URL (env HAMCTL_SERVER)")
	flags.StringVar(&opts.timezone, "timezone", "Asia/Tokyo", "timezone for date arguments and output")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	cmd.AddCommand(
		newRunCmd(opts),
		newSprintCmd(opts),
		newCountCmd(opts),
		newWatchCmd(opts),
		newSimulateCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) client() (*client.Client, error) {
	return client.New(o.server)
}

func (o *rootOptions) location() (*time.Location, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", o.timezone, err)
	}
	return loc, nil
}
