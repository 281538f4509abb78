package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alejandroruanova/outage-analytics-service/internal/app"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/parsers"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/config"
	"github.com/alejandroruanova/outage-analytics-service/internal/pkg/logger"
)

// cli carries the state shared by every subcommand
type cli struct {
	cfg    *config.Config
	rt     *app.Runtime
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	var verbose bool

	root := &cobra.Command{
		Use:           "outagectl",
		Short:         "Transmission line outage analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			c.cfg = cfg

			c.logger = logger.Discard()
			if verbose {
				c.logger = logger.New(cfg.Environment, cmd.ErrOrStderr())
			}

			rt, err := app.NewRuntime(cfg, nil, c.logger)
			if err != nil {
				return err
			}
			c.rt = rt
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if c.rt == nil {
				return nil
			}
			return c.rt.Close()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		c.criticalityCmd(),
		c.analyticsCmd(),
		c.groundingCmd(),
		c.catalogCmd(),
		c.locateCmd(),
		c.askCmd(),
		c.syncCmd(),
		c.watchCmd(),
	)
	return root
}

// source opens path, or the configured fallback when path is empty.
func source(path, fallback, flag string) (parsers.Source, error) {
	if path == "" {
		path = fallback
	}
	if path == "" {
		return nil, fmt.Errorf("--%s is required", flag)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parsers.NewPathSource(path), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
