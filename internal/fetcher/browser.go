package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/parser"
	"github.com/IshaanNene/TopHub/internal/types"
)

// BrowserFetcher renders pages in a Chromium-family browser driven by Rod.
// Each Render call owns its own browser process.
type BrowserFetcher struct {
	cfg          *config.BrowserConfig
	waitSelector string
	proxyMgr     *ProxyManager
	logger       *slog.Logger
}

// BrowserOption configures the BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithWaitSelector sets the selector that must appear before the page counts as loaded.
func WithWaitSelector(sel string) BrowserOption {
	return func(bf *BrowserFetcher) { bf.waitSelector = sel }
}

// WithBrowserProxy sets the proxy manager for browser launches.
func WithBrowserProxy(pm *ProxyManager) BrowserOption {
	return func(bf *BrowserFetcher) { bf.proxyMgr = pm }
}

// NewBrowserFetcher creates a browser fetcher. No browser is started until Render.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger, opts ...BrowserOption) *BrowserFetcher {
	bf := &BrowserFetcher{
		cfg:          &cfg.Browser,
		waitSelector: parser.DefaultSelectors().Container,
		logger:       logger.With("component", "browser_fetcher"),
	}
	for _, opt := range opts {
		opt(bf)
	}
	return bf
}

// Render loads target, scrolls until no more content appears and hands the
// live page to fn. The browser is torn down on every return path. Failures
// before fn runs are reported as *types.RenderError; fn's error is returned as is.
func (bf *BrowserFetcher) Render(ctx context.Context, target string, fn func(parser.Document) error) error {
	start := time.Now()

	l := bf.newLauncher()
	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return &types.RenderError{URL: target, Stage: "launch", Err: err}
	}
	defer func() {
		l.Kill()
		if bf.cfg.UserDataDir == "" {
			l.Cleanup() // removes the temporary profile
		}
	}()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return &types.RenderError{URL: target, Stage: "connect", Err: err}
	}
	defer func() {
		if err := browser.Close(); err != nil {
			bf.logger.Debug("browser close", "error", err)
		}
	}()

	page, err := bf.openPage(browser)
	if err != nil {
		return &types.RenderError{URL: target, Stage: "page", Err: err}
	}

	bf.logger.Info("loading page", "url", target)
	if err := bf.navigate(page, target); err != nil {
		return &types.RenderError{URL: target, Stage: "navigate", Err: err}
	}

	waiter := page.Timeout(bf.cfg.PageTimeout)
	_, err = waiter.Element(bf.waitSelector)
	waiter.CancelTimeout()
	if err != nil {
		return &types.RenderError{URL: target, Stage: "wait_selector", Err: fmt.Errorf("%s: %w", bf.waitSelector, err)}
	}

	sc := &pageScroller{page: page, pause: bf.cfg.ScrollPause, timeout: bf.cfg.PageTimeout, logger: bf.logger}
	if _, err := scrollToBottom(ctx, sc, bf.cfg.MaxScrolls, bf.logger); err != nil {
		if ctx.Err() != nil {
			return &types.RenderError{URL: target, Stage: "scroll", Err: ctx.Err()}
		}
		bf.logger.Warn("scroll incomplete, extracting what is loaded", "error", err)
	}

	bf.logger.Debug("page ready", "url", target, "duration", time.Since(start))
	return fn(parser.NewRenderedDocument(page))
}

func (bf *BrowserFetcher) newLauncher() *launcher.Launcher {
	l := launcher.New().
		Headless(bf.cfg.Headless).
		Set("window-size", fmt.Sprintf("%d,%d", bf.cfg.WindowWidth, bf.cfg.WindowHeight)).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-web-security").
		Set("disable-features", "IsolateOrigins,site-per-process")

	if bin := findBrowserBin(bf.cfg.Bin, edgeCandidates()); bin != "" {
		bf.logger.Info("using browser binary", "path", bin)
		l = l.Bin(bin)
	} else {
		bf.logger.Warn("no Edge install found, falling back to Chromium")
	}

	if bf.cfg.UserDataDir != "" {
		l = l.UserDataDir(bf.cfg.UserDataDir)
	}

	if proxyURL := bf.proxyMgr.Next(); proxyURL != nil {
		l = l.Proxy(proxyURL.String())
	}

	return l
}

// openPage creates a stealth page with the automation mask, viewport and UA applied.
func (bf *BrowserFetcher) openPage(browser *rod.Browser) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("stealth page: %w", err)
	}

	if _, err := page.EvalOnNewDocument(automationMaskJS); err != nil {
		return nil, fmt.Errorf("inject mask script: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             bf.cfg.WindowWidth,
		Height:            bf.cfg.WindowHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if bf.cfg.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: bf.cfg.UserAgent})
		if err != nil {
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	return page, nil
}

// navigate opens target and waits for the network to go quiet.
func (bf *BrowserFetcher) navigate(page *rod.Page, target string) error {
	p := page.Timeout(bf.cfg.PageTimeout)
	defer p.CancelTimeout()

	waitIdle := p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	if err := p.Navigate(target); err != nil {
		return err
	}
	waitIdle()
	return nil
}

// scroller is the part of a page the scroll loop drives.
type scroller interface {
	Height() (int, error)
	ScrollDown() error
	Settle(ctx context.Context) error
}

// pageScroller drives a rod page.
type pageScroller struct {
	page    *rod.Page
	pause   time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

func (p *pageScroller) Height() (int, error) {
	res, err := p.page.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("read scroll height: %w", err)
	}
	return res.Value.Int(), nil
}

func (p *pageScroller) ScrollDown() error {
	if _, err := p.page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// Settle pauses, then waits for the page to go idle. An idle timeout is not an error.
func (p *pageScroller) Settle(ctx context.Context) error {
	if err := sleepContext(ctx, p.pause); err != nil {
		return err
	}
	idle := p.page.Timeout(p.timeout)
	if err := idle.WaitIdle(p.timeout); err != nil {
		p.logger.Debug("idle wait after scroll", "error", err)
	}
	idle.CancelTimeout()
	return nil
}

// scrollToBottom scrolls until document height stops growing or maxScrolls is
// hit, and returns the number of scrolls performed.
func scrollToBottom(ctx context.Context, s scroller, maxScrolls int, logger *slog.Logger) (int, error) {
	last, err := s.Height()
	if err != nil {
		return 0, err
	}

	for i := 0; i < maxScrolls; i++ {
		if err := s.ScrollDown(); err != nil {
			return i, err
		}
		if err := s.Settle(ctx); err != nil {
			return i + 1, err
		}

		height, err := s.Height()
		if err != nil {
			return i + 1, err
		}
		if height == last {
			logger.Debug("scrolling finished", "scrolls", i+1, "height", height)
			return i + 1, nil
		}
		last = height
	}

	logger.Info("scroll limit reached", "max_scrolls", maxScrolls)
	return maxScrolls, nil
}
