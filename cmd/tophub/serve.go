package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/engine"
	"github.com/IshaanNene/TopHub/internal/observability"
	"github.com/IshaanNene/TopHub/internal/storage"
)

// serveCmd creates the "serve" subcommand that scrapes on a schedule.
func serveCmd() *cobra.Command {
	var (
		interval int
		mode     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Scrape now and then on a fixed interval",
		Long: `Run a scrape immediately and repeat it every --interval hours until
SIGINT or SIGTERM is received. Runs never overlap.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(func(cfg *config.Config) {
				if interval > 0 {
					cfg.Schedule.IntervalHours = interval
				}
				if mode != "" {
					cfg.Scraper.Mode = mode
				}
			})
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 0, "hours between runs")
	cmd.Flags().StringVar(&mode, "mode", "", "transport: http or browser")
	return cmd
}

func runServe(cfg *config.Config) error {
	logger, closeLog, err := setupLogger(&cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signalContext(logger)
	defer cancel()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	scraper, err := engine.NewScraper(cfg, logger, engine.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("create scraper: %w", err)
	}

	store, err := storage.NewStorage(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	job := func(ctx context.Context) error {
		start := time.Now()
		batch, err := scraper.Run(ctx, store)
		if err != nil {
			return err
		}
		if batch.Len() == 0 {
			logger.Warn("no data retrieved this run")
			return nil
		}
		logger.Info("run stored", "items", batch.Len(), "duration", time.Since(start))
		return nil
	}

	logger.Info("service starting",
		"mode", cfg.Scraper.Mode,
		"interval", cfg.Schedule.Interval(),
		"output", cfg.Storage.OutputDir,
	)
	if err := engine.NewScheduler(cfg.Schedule.Interval(), job, logger).Run(ctx); err != nil {
		return err
	}
	snap := metrics.Snapshot()
	logger.Info("service stopped", "runs", snap["scrapes_total"], "items", snap["items_scraped"])
	return nil
}
