// Package tophub provides a public SDK for embedding the TopHub scraper as a library.
//
// Example usage:
//
//	client, err := tophub.New(
//	    tophub.WithMode(tophub.ModeHTTP),
//	    tophub.WithDelayRange(2*time.Second, 3*time.Second),
//	    tophub.WithProxies("http://127.0.0.1:8080"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	items, err := client.Scrape(ctx)
//	for _, item := range items {
//	    fmt.Println(item.Platform, item.Ranking, item.Title)
//	}
package tophub

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/engine"
	"github.com/IshaanNene/TopHub/internal/parser"
	"github.com/IshaanNene/TopHub/internal/storage"
	"github.com/IshaanNene/TopHub/internal/types"
)

// HotItem is a single entry of a platform's hot list.
type HotItem = types.HotItem

// Transport modes.
const (
	ModeHTTP    = engine.ModeHTTP
	ModeBrowser = engine.ModeBrowser
)

// Client is the high-level API for scraping tophub.today from Go code.
type Client struct {
	cfg     *config.Config
	scraper *engine.Scraper
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*config.Config)

// WithMode selects the http or browser transport.
func WithMode(mode string) Option {
	return func(c *config.Config) { c.Scraper.Mode = mode }
}

// WithTargetURL sets the page to scrape.
func WithTargetURL(u string) Option {
	return func(c *config.Config) { c.Target.URL = u }
}

// WithDelayRange sets the random pause taken before every attempt.
func WithDelayRange(lo, hi time.Duration) Option {
	return func(c *config.Config) {
		c.Scraper.DelayRange = []float64{lo.Seconds(), hi.Seconds()}
	}
}

// WithMaxRetries sets the number of attempts on the HTTP path.
func WithMaxRetries(n int) Option {
	return func(c *config.Config) { c.Scraper.MaxRetries = n }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config.Config) { c.Scraper.RequestTimeout = d }
}

// WithProxies enables proxy rotation with the given proxy URLs.
func WithProxies(urls ...string) Option {
	return func(c *config.Config) { c.Proxy.URLs = urls }
}

// WithHeadless toggles the browser window in browser mode.
func WithHeadless(headless bool) Option {
	return func(c *config.Config) { c.Browser.Headless = headless }
}

// WithUserDataDir reuses a browser profile directory in browser mode.
func WithUserDataDir(dir string) Option {
	return func(c *config.Config) { c.Browser.UserDataDir = dir }
}

// WithOutput sets the output directory and file formats used by Save.
func WithOutput(dir string, formats ...string) Option {
	return func(c *config.Config) {
		c.Storage.OutputDir = dir
		if len(formats) > 0 {
			c.Storage.Formats = formats
		}
	}
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// New creates a Client with the given options applied over the defaults.
func New(opts ...Option) (*Client, error) {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	level := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	scraper, err := engine.NewScraper(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Client{cfg: cfg, scraper: scraper, logger: logger}, nil
}

// Scrape runs one pass. An empty result with a nil error means the page
// could not be fetched after all retries.
func (c *Client) Scrape(ctx context.Context) ([]HotItem, error) {
	return c.scraper.Scrape(ctx)
}

// Save writes items to the configured output formats, stamped at capturedAt.
func (c *Client) Save(ctx context.Context, capturedAt time.Time, items []HotItem) error {
	store, err := storage.NewStorage(&c.cfg.Storage, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Store(ctx, &types.Batch{CapturedAt: capturedAt, Items: items})
}

// ParseHeat converts heat text such as "1.2万" into a count.
func ParseHeat(raw string) (int64, bool) {
	return parser.ParseHeat(raw)
}
