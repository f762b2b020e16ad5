package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-drift/maps/cmd/mapsim/internal/config"
	"github.com/go-drift/maps/cmd/mapsim/internal/scenario"
	"github.com/go-drift/maps/pkg/errors"
)

func newRunCommand() *cobra.Command {
	cfg := config.Default()
	var cfgPath string
	var watch bool

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Replay a scenario and print the map call trace",
		Long: `run replays a scenario against an in-memory map and prints each step
with the calls the map received. It fails on the first step that errors or
expectation that does not hold.

Settings come from ~/.mapsim/config.toml (or --config), then MAPSIM_*
environment variables, then flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })
			if err := config.Resolve(&cfg, cfgPath, changed); err != nil {
				return err
			}

			log := cfg.Logger(cmd.ErrOrStderr())
			handler := errors.NewLogHandler(&log)
			handler.Verbose = cfg.Verbose
			errors.SetHandler(handler)
			defer errors.SetHandler(nil)

			log.Debug().Interface("config", cfg).Msg("configuration")

			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := args[0]
			runner := scenario.NewRunner(scenario.Options{
				DefaultDuration: cfg.DefaultDuration,
				Out:             cmd.OutOrStdout(),
				Logger:          log,
			})
			runOnce := func() error {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				res, err := runner.Run(ctx, sc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok: %d calls, view %s, camera %s\n", len(res.Calls), res.State, res.Position)
				return nil
			}

			if !watch {
				return runOnce()
			}
			if err := runOnce(); err != nil {
				log.Error().Err(err).Msg("scenario failed")
			}
			log.Info().Str("file", path).Msg("watching for changes")
			return scenario.NewWatcher(path, cfg.Debounce, log).Run(ctx, func() {
				if err := runOnce(); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("scenario failed")
				}
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgPath, "config", "", "config file (default ~/.mapsim/config.toml)")
	f.BoolVar(&watch, "watch", false, "re-run the scenario each time the file changes")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	f.DurationVar(&cfg.DefaultDuration, "default-duration", cfg.DefaultDuration, "duration of animate steps that set none")
	f.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "delay before a watched re-run")
	f.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "disable colored log output")
	f.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log stack traces of reported panics")
	return cmd
}

// contextOrBackground guards against commands executed without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
