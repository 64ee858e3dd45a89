package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/engine"
	"github.com/IshaanNene/TopHub/internal/storage"
	"github.com/IshaanNene/TopHub/internal/types"
)

type scrapeFlags struct {
	mode       string
	url        string
	headless   bool
	noHeadless bool
	outputDir  string
	waitMS     int
	formats    string
	proxies    []string
	preview    int
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	f := &scrapeFlags{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the hot lists once",
		Long:  "Fetch the configured page once, extract every platform's hot list and write it to the configured sinks.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.mode, "mode", "", "transport: http or browser")
	cmd.Flags().StringVar(&f.url, "url", "", "page to scrape")
	cmd.Flags().BoolVar(&f.headless, "headless", true, "run the browser headless")
	cmd.Flags().BoolVar(&f.noHeadless, "no-headless", false, "show the browser window")
	cmd.Flags().StringVarP(&f.outputDir, "output", "o", "", "output directory")
	cmd.Flags().IntVarP(&f.waitMS, "wait", "w", 0, "page load timeout in milliseconds")
	cmd.Flags().StringVar(&f.formats, "format", "", "comma-separated output formats: json, csv")
	cmd.Flags().StringArrayVar(&f.proxies, "proxy", nil, "proxy URL (repeatable)")
	cmd.Flags().IntVar(&f.preview, "preview", 10, "rows to print after scraping (0 disables)")

	return cmd
}

// apply copies explicitly set flags onto cfg.
func (f *scrapeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if f.mode != "" {
		cfg.Scraper.Mode = strings.ToLower(f.mode)
	}
	if f.url != "" {
		cfg.Target.URL = f.url
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if f.noHeadless {
		cfg.Browser.Headless = false
	}
	if f.outputDir != "" {
		cfg.Storage.OutputDir = f.outputDir
	}
	if f.waitMS > 0 {
		cfg.Browser.PageTimeout = time.Duration(f.waitMS) * time.Millisecond
	}
	if f.formats != "" {
		var formats []string
		for _, s := range strings.Split(f.formats, ",") {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				formats = append(formats, s)
			}
		}
		cfg.Storage.Formats = formats
	}
	if len(f.proxies) > 0 {
		cfg.Proxy.URLs = f.proxies
	}
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, f *scrapeFlags) error {
	cfg, err := loadConfig(func(cfg *config.Config) { f.apply(cmd, cfg) })
	if err != nil {
		return err
	}

	logger, closeLog, err := setupLogger(&cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signalContext(logger)
	defer cancel()

	scraper, err := engine.NewScraper(cfg, logger)
	if err != nil {
		return fmt.Errorf("create scraper: %w", err)
	}

	store, err := storage.NewStorage(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	start := time.Now()
	batch, err := scraper.Run(ctx, store)
	if err != nil {
		var renderErr *types.RenderError
		if errors.As(err, &renderErr) {
			return fmt.Errorf("browser scrape failed at %s: %w", renderErr.Stage, renderErr.Err)
		}
		return err
	}

	if batch.Len() == 0 {
		fmt.Println("\n⚠️  No data retrieved.")
		return nil
	}

	fmt.Printf("\n✅ Scraped %d items in %s\n", batch.Len(), time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Platforms: %d\n", countPlatforms(batch.Items))
	fmt.Printf("   Output:    %s\n", cfg.Storage.OutputDir)
	printPreview(batch.Items, f.preview)
	return nil
}

func countPlatforms(items []types.HotItem) int {
	seen := make(map[string]struct{})
	for _, item := range items {
		seen[item.Platform] = struct{}{}
	}
	return len(seen)
}

func printPreview(items []types.HotItem, n int) {
	if n <= 0 {
		return
	}
	if n > len(items) {
		n = len(items)
	}

	fmt.Printf("\nFirst %d items:\n", n)
	for _, item := range items[:n] {
		heat := item.HeatString()
		if heat == "" {
			heat = "-"
		}
		fmt.Printf("  [%s] #%d %s (%s)\n", item.Platform, item.Ranking, item.Title, heat)
	}
}
