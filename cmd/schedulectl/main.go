// Package main implements schedulectl, which runs schedule searches
// in-process against the configured carriers.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/schedulehub/p2p/internal/app"
	"github.com/schedulehub/p2p/internal/config"
	"github.com/schedulehub/p2p/internal/schedule"
	"github.com/schedulehub/p2p/internal/search"
)

// Version is set at compile time via ldflags.
var Version = "dev"

// searcher is the part of the search service the commands use.
type searcher interface {
	Search(ctx context.Context, q schedule.Query) (*search.Response, error)
	Carriers() []schedule.SCAC
}

// opener builds a searcher and returns a release func.
type opener func(ctx context.Context, logger zerolog.Logger) (searcher, func(), error)

func main() {
	if err := newRootCmd(openPipeline).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "schedulectl",
		Short:         "Query point-to-point ocean schedules",
		Long:          "schedulectl runs the schedule aggregator in-process using the same environment and CARRIERS_CONFIG as the API server.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log carrier activity to stderr")

	logger := func(cmd *cobra.Command) zerolog.Logger {
		if !verbose {
			return zerolog.Nop()
		}
		return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
	}

	root.AddCommand(newSearchCmd(open, logger), newCarriersCmd(open, logger))
	return root
}

// openPipeline builds the search service from the environment.
func openPipeline(ctx context.Context, logger zerolog.Logger) (searcher, func(), error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	carriers, err := config.LoadCarriers(cfg.CarriersFile)
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := app.New(ctx, app.Options{Config: cfg, Carriers: carriers, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return pipeline.Search, pipeline.Close, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...) //nolint:errcheck // terminal output
}
