package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/fetcher"
	"github.com/IshaanNene/TopHub/internal/observability"
	"github.com/IshaanNene/TopHub/internal/parser"
	"github.com/IshaanNene/TopHub/internal/storage"
	"github.com/IshaanNene/TopHub/internal/types"
)

// Scrape modes.
const (
	ModeHTTP    = "http"
	ModeBrowser = "browser"
)

// Getter returns the body of a page, retrying as it sees fit.
type Getter interface {
	Get(ctx context.Context, target string) (string, error)
}

// Renderer loads a page in a browser and hands the live document to fn.
type Renderer interface {
	Render(ctx context.Context, target string, fn func(parser.Document) error) error
}

// Scraper composes a transport with the extractor into one scrape pass.
type Scraper struct {
	cfg       *config.Config
	mode      string
	getter    Getter
	renderer  Renderer
	extractor *parser.Extractor
	metrics   *observability.Metrics
	now       func() time.Time
	logger    *slog.Logger

	mu   sync.Mutex
	last time.Time
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithGetter replaces the HTTP transport.
func WithGetter(g Getter) Option {
	return func(s *Scraper) { s.getter = g }
}

// WithRenderer replaces the browser transport.
func WithRenderer(r Renderer) Option {
	return func(s *Scraper) { s.renderer = r }
}

// WithMetrics records scrape and attempt counters into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// WithClock replaces time.Now for batch timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// NewScraper wires the default transports for cfg.Scraper.Mode. Transports
// passed as options are used instead.
func NewScraper(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Scraper, error) {
	extractor, err := parser.NewExtractor(cfg.Target.Origin, parser.DefaultSelectors(), logger)
	if err != nil {
		return nil, err
	}

	s := &Scraper{
		cfg:       cfg,
		mode:      cfg.Scraper.Mode,
		extractor: extractor,
		now:       time.Now,
		logger:    logger.With("component", "scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics(logger)
	}

	proxies := fetcher.NewProxyManager(&cfg.Proxy, logger)

	switch s.mode {
	case ModeHTTP:
		if s.getter == nil {
			hf, err := fetcher.NewHTTPFetcher(cfg, logger)
			if err != nil {
				return nil, err
			}
			s.getter = fetcher.NewRetrier(hf, proxies, &cfg.Scraper, logger,
				fetcher.WithStateHook(s.observeAttempt))
		}
	case ModeBrowser:
		if s.renderer == nil {
			s.renderer = fetcher.NewBrowserFetcher(cfg, logger,
				fetcher.WithWaitSelector(parser.DefaultSelectors().Container),
				fetcher.WithBrowserProxy(proxies))
		}
	default:
		return nil, fmt.Errorf("unknown scrape mode %q", s.mode)
	}

	return s, nil
}

// Metrics returns the scraper's counters.
func (s *Scraper) Metrics() *observability.Metrics {
	return s.metrics
}

// Scrape runs one pass and returns the extracted items.
func (s *Scraper) Scrape(ctx context.Context) ([]types.HotItem, error) {
	batch, err := s.ScrapeBatch(ctx)
	if err != nil {
		return nil, err
	}
	return batch.Items, nil
}

// ScrapeBatch runs one pass. In HTTP mode a total fetch failure yields an
// empty batch and a nil error. In browser mode fatal failures are returned
// as *types.RenderError. Cancellation of ctx is always returned.
func (s *Scraper) ScrapeBatch(ctx context.Context) (*types.Batch, error) {
	start := time.Now()
	s.logger.Info("scrape started", "mode", s.mode, "url", s.cfg.Target.URL)

	var (
		items []types.HotItem
		err   error
	)
	switch s.mode {
	case ModeBrowser:
		items, err = s.scrapeBrowser(ctx)
	default:
		items, err = s.scrapeHTTP(ctx)
	}

	s.metrics.RecordScrape(len(items), err)
	if err != nil {
		s.logger.Error("scrape failed", "mode", s.mode, "error", err)
		return nil, err
	}

	batch := types.NewBatch(s.stamp(), items)
	if batch.Len() == 0 {
		s.logger.Warn("no data retrieved", "mode", s.mode)
	}
	s.logger.Info("scrape finished", "items", batch.Len(), "duration", time.Since(start))
	return batch, nil
}

// Run scrapes once and hands a non-empty batch to store.
func (s *Scraper) Run(ctx context.Context, store storage.Storage) (*types.Batch, error) {
	batch, err := s.ScrapeBatch(ctx)
	if err != nil {
		return nil, err
	}
	if batch.Len() == 0 || store == nil {
		return batch, nil
	}

	if err := store.Store(ctx, batch); err != nil {
		s.metrics.StorageErrors.Inc()
		return batch, fmt.Errorf("store batch: %w", err)
	}
	s.metrics.ItemsStored.Add(float64(batch.Len()))
	return batch, nil
}

func (s *Scraper) scrapeHTTP(ctx context.Context) ([]types.HotItem, error) {
	body, err := s.getter.Get(ctx, s.cfg.Target.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Error("fetch failed, returning empty result", "url", s.cfg.Target.URL, "error", err)
		return nil, nil
	}

	doc, err := parser.NewStaticDocumentFromString(body)
	if err != nil {
		s.logger.Error("document parse failed", "error", err)
		return nil, nil
	}

	return s.extract(doc)
}

func (s *Scraper) scrapeBrowser(ctx context.Context) ([]types.HotItem, error) {
	var items []types.HotItem
	err := s.renderer.Render(ctx, s.cfg.Target.URL, func(doc parser.Document) error {
		found, err := s.extract(doc)
		if err != nil {
			return &types.RenderError{URL: s.cfg.Target.URL, Stage: "extract", Err: err}
		}
		items = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// extract treats a page without ranking containers as empty rather than failed.
func (s *Scraper) extract(doc parser.Document) ([]types.HotItem, error) {
	items, err := s.extractor.Extract(doc)
	if errors.Is(err, types.ErrNoContainers) {
		s.logger.Warn("page has no ranking containers", "url", s.cfg.Target.URL)
		return nil, nil
	}
	return items, err
}

// stamp returns the batch time, never earlier than the previous batch.
func (s *Scraper) stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Before(s.last) {
		now = s.last
	}
	s.last = now
	return now
}

func (s *Scraper) observeAttempt(state fetcher.State, _ int, err error) {
	switch state {
	case fetcher.StateRequesting:
		s.metrics.AttemptsTotal.Inc()
	case fetcher.StateBackingOff:
		s.metrics.Backoffs.Inc()
		s.metrics.RecordAttemptFailure(string(types.KindOf(err)))
	case fetcher.StateExhausted:
		s.metrics.RecordAttemptFailure(string(types.KindOf(err)))
	}
}
