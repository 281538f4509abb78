package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/analytics"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/assistant"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/criticality"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/locator"
	"github.com/alejandroruanova/outage-analytics-service/internal/core/services/prepare"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/export"
	"github.com/alejandroruanova/outage-analytics-service/internal/infrastructure/queue"
	"github.com/alejandroruanova/outage-analytics-service/internal/watcher"
)

func (c *cli) criticalityCmd() *cobra.Command {
	var outages, resistance, format string
	var top int

	cmd := &cobra.Command{
		Use:   "criticality",
		Short: "Rank towers by outage frequency times mean grounding resistance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			outagesSrc, err := source(outages, c.cfg.Data.OutagesPath, "outages")
			if err != nil {
				return err
			}
			resistanceSrc, err := source(resistance, c.cfg.Data.ResistancePath, "resistance")
			if err != nil {
				return err
			}
			result, err := c.rt.Analyzer.Criticality(cmd.Context(), outagesSrc, resistanceSrc, top)
			if err != nil {
				return err
			}
			switch strings.ToLower(format) {
			case "csv":
				return export.WriteScores(cmd.OutOrStdout(), result.Top)
			case "json":
				return writeJSON(cmd.OutOrStdout(), result)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&outages, "outages", "", "outages workbook")
	cmd.Flags().StringVar(&resistance, "resistance", "", "grounding resistance workbook")
	cmd.Flags().IntVar(&top, "top", criticality.DefaultTopN, "rows in the ranking")
	cmd.Flags().StringVar(&format, "format", "json", "json or csv")
	return cmd
}

func (c *cli) analyticsCmd() *cobra.Command {
	var outages, concession, year string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Outage dashboard series for a concession and year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := source(outages, c.cfg.Data.OutagesPath, "outages")
			if err != nil {
				return err
			}
			y, err := analytics.ParseYear(year)
			if err != nil {
				return err
			}
			report, err := c.rt.Analyzer.Analytics(cmd.Context(), src, analytics.Filter{Concession: concession, Year: y})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&outages, "outages", "", "outages workbook")
	cmd.Flags().StringVar(&concession, "concession", analytics.AllConcessions, "concession filter")
	cmd.Flags().StringVar(&year, "year", analytics.AllYears, "year filter")
	return cmd
}

func (c *cli) groundingCmd() *cobra.Command {
	var resistance, line, minRaw, maxRaw string

	cmd := &cobra.Command{
		Use:   "grounding",
		Short: "Grounding resistance histogram and summary for a line",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := source(resistance, c.cfg.Data.ResistancePath, "resistance")
			if err != nil {
				return err
			}
			var rng *analytics.Bounds
			if minRaw != "" || maxRaw != "" {
				lo, ok := prepare.ParseLocaleFloat(minRaw)
				if !ok {
					return fmt.Errorf("--min %q is not a number", minRaw)
				}
				hi, ok := prepare.ParseLocaleFloat(maxRaw)
				if !ok {
					return fmt.Errorf("--max %q is not a number", maxRaw)
				}
				rng = &analytics.Bounds{Min: lo, Max: hi}
			}
			report, err := c.rt.Analyzer.Grounding(cmd.Context(), src, line, rng)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&resistance, "resistance", "", "grounding resistance workbook")
	cmd.Flags().StringVar(&line, "line", analytics.AllLines, "line filter")
	cmd.Flags().StringVar(&minRaw, "min", "", "lower resistance bound")
	cmd.Flags().StringVar(&maxRaw, "max", "", "upper resistance bound")
	cmd.MarkFlagsRequiredTogether("min", "max")
	return cmd
}

func (c *cli) catalogCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the concessions and lines of a locator workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := source(path, c.cfg.Data.LocatorPath, "locator")
			if err != nil {
				return err
			}
			catalog, err := c.rt.Analyzer.Catalog(cmd.Context(), src)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), catalog)
		},
	}
	cmd.Flags().StringVar(&path, "locator", "", "locator workbook")
	return cmd
}

func (c *cli) locateCmd() *cobra.Command {
	var path string
	var req locator.Request

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find the span holding a fault distance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := source(path, c.cfg.Data.LocatorPath, "locator")
			if err != nil {
				return err
			}
			result, err := c.rt.Analyzer.Locate(cmd.Context(), src, req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&path, "locator", "", "locator workbook")
	cmd.Flags().StringVar(&req.Concession, "concession", "", "concession")
	cmd.Flags().StringVar(&req.Line, "lt", "", "line")
	cmd.Flags().StringVar(&req.Phase, "phase", "", "faulted phase")
	cmd.Flags().Float64Var(&req.SearchKm, "km", 0, "fault distance in km")
	_ = cmd.MarkFlagRequired("lt")
	return cmd
}

func (c *cli) askCmd() *cobra.Command {
	var outages, session, model string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the assistant about the outages workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source(outages, c.cfg.Data.OutagesPath, "outages")
			if err != nil {
				return err
			}
			id := uuid.Nil
			if session != "" {
				if id, err = uuid.Parse(session); err != nil {
					return fmt.Errorf("--session must be a UUID: %w", err)
				}
			}
			answer, err := c.rt.Analyzer.Ask(cmd.Context(), src, assistant.Question{
				SessionID: id,
				Model:     model,
				Text:      strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), answer)
		},
	}
	cmd.Flags().StringVar(&outages, "outages", "", "outages workbook")
	cmd.Flags().StringVar(&session, "session", "", "continue a conversation")
	cmd.Flags().StringVar(&model, "model", "", "chat model")
	return cmd
}

func (c *cli) syncCmd() *cobra.Command {
	var p queue.SyncPayload

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge an outage update workbook into the base workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.fillSync(&p)
			p.Trigger = "cli"
			if err := c.rt.Analyzer.SyncFiles(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p.OutputPath)
			return nil
		},
	}
	c.syncFlags(cmd, &p)
	return cmd
}

func (c *cli) watchCmd() *cobra.Command {
	var p queue.SyncPayload
	var dir string
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the sync whenever the base or update workbook changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.fillSync(&p)
			p.Trigger = "watch"
			if err := p.Validate(); err != nil {
				return err
			}
			if dir == "" {
				dir = c.cfg.Data.WatchDir
			}
			if dir == "" {
				dir = filepath.Dir(p.UpdatePath)
			}

			w := watcher.New(watcher.Config{
				Dir:      dir,
				Files:    []string{filepath.Base(p.BasePath), filepath.Base(p.UpdatePath)},
				Ignore:   []string{p.OutputPath},
				Debounce: debounce,
			}, func(ctx context.Context, _ string) error {
				return c.rt.Analyzer.SyncFiles(ctx, p)
			}, c.logger)

			if err := w.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", dir)
			<-cmd.Context().Done()
			return nil
		},
	}
	c.syncFlags(cmd, &p)
	cmd.Flags().StringVar(&dir, "dir", "", "directory to watch")
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "quiet period before a sync")
	return cmd
}

func (c *cli) syncFlags(cmd *cobra.Command, p *queue.SyncPayload) {
	cmd.Flags().StringVar(&p.BasePath, "base", "", "base workbook")
	cmd.Flags().StringVar(&p.UpdatePath, "update", "", "update workbook")
	cmd.Flags().StringVar(&p.OutputPath, "output", "", "merged workbook")
}

// fillSync takes unset paths from the configuration.
func (c *cli) fillSync(p *queue.SyncPayload) {
	if p.BasePath == "" {
		p.BasePath = c.cfg.Data.SyncBasePath
	}
	if p.UpdatePath == "" {
		p.UpdatePath = c.cfg.Data.SyncUpdatePath
	}
	if p.OutputPath == "" {
		p.OutputPath = c.cfg.Data.SyncOutputPath
	}
}
