package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/types"
)

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.ScraperConfig
	referer    string
	logger     *slog.Logger
	userAgents []string
	randomUA   bool
}

type proxyKey struct{}

// withProxy attaches the proxy for a single request to ctx.
func withProxy(ctx context.Context, proxy *url.URL) context.Context {
	if proxy == nil {
		return ctx
	}
	return context.WithValue(ctx, proxyKey{}, proxy)
}

// requestProxy is the transport proxy func; the proxy travels with the request.
func requestProxy(req *http.Request) (*url.URL, error) {
	if u, ok := req.Context().Value(proxyKey{}).(*url.URL); ok {
		return u, nil
	}
	return nil, nil
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		Proxy: requestProxy,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decompressed in decompressReader, including brotli
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   cfg.Scraper.RequestTimeout,
	}

	return &HTTPFetcher{
		client:     client,
		cfg:        &cfg.Scraper,
		referer:    strings.TrimSuffix(cfg.Target.Origin, "/") + "/",
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.Scraper.UserAgents,
		randomUA:   cfg.Scraper.RandomUserAgent,
	}, nil
}

// Fetch executes a GET request and returns the decompressed body.
// Failures are reported as *types.FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string, proxy *url.URL) (*Page, error) {
	httpReq, err := http.NewRequestWithContext(withProxy(ctx, proxy), http.MethodGet, target, nil)
	if err != nil {
		return nil, &types.FetchError{URL: target, Kind: types.FailureNetwork, Err: fmt.Errorf("%w: %v", types.ErrInvalidURL, err)}
	}
	f.setHeaders(httpReq)

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{
			URL:   target,
			Kind:  classifyError(err, proxy != nil),
			Proxy: proxyHost(proxy),
			Err:   err,
		}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, &types.FetchError{
			URL:        target,
			Kind:       types.FailureRateLimited,
			StatusCode: httpResp.StatusCode,
			Proxy:      proxyHost(proxy),
			Err:        errors.New("HTTP 429: rate limited"),
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, &types.FetchError{
			URL:        target,
			Kind:       types.FailureHTTP,
			StatusCode: httpResp.StatusCode,
			Proxy:      proxyHost(proxy),
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	reader, err := decompressReader(httpResp, httpResp.Body)
	if err != nil {
		return nil, &types.FetchError{URL: target, Kind: types.FailureNetwork, Proxy: proxyHost(proxy), Err: err}
	}

	// The cap applies to the decoded page; one extra byte detects overflow.
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: target, Kind: classifyError(err, false), Proxy: proxyHost(proxy), Err: err}
	}
	if f.cfg.MaxBodySize > 0 && int64(len(body)) > f.cfg.MaxBodySize {
		return nil, &types.FetchError{
			URL:        target,
			Kind:       types.FailureHTTP,
			StatusCode: httpResp.StatusCode,
			Proxy:      proxyHost(proxy),
			Err:        fmt.Errorf("%w: more than %d bytes", types.ErrBodyTooLarge, f.cfg.MaxBodySize),
		}
	}

	page := &Page{
		URL:        target,
		FinalURL:   httpResp.Request.URL.String(),
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Duration:   duration,
	}

	f.logger.Debug("fetch complete",
		"url", target,
		"status", page.StatusCode,
		"size", len(body),
		"proxy", proxyHost(proxy),
		"duration", duration,
	)

	return page, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Referer", f.referer)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	req.Header.Set("Cache-Control", "max-age=0")
}

// userAgent picks a random entry when rotation is enabled, otherwise the first.
func (f *HTTPFetcher) userAgent() string {
	if len(f.userAgents) == 0 {
		return "TopHub/" + config.Version
	}
	if f.randomUA {
		return f.userAgents[rand.Intn(len(f.userAgents))]
	}
	return f.userAgents[0]
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return deflateReader(reader)
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// deflateReader decodes zlib-wrapped deflate and falls back to raw deflate
// for servers that omit the zlib header.
func deflateReader(reader io.Reader) (io.Reader, error) {
	br := bufio.NewReader(reader)
	header, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if isZlibHeader(header) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// isZlibHeader checks the RFC 1950 CMF/FLG pair: deflate method and a
// header checksum divisible by 31.
func isZlibHeader(h []byte) bool {
	if len(h) < 2 {
		return false
	}
	return h[0]&0x0f == 8 && (uint16(h[0])<<8|uint16(h[1]))%31 == 0
}

// classifyError maps a transport error onto a FailureKind. Proxy failures are
// checked first so a timed-out proxy dial is still reported as a proxy problem.
func classifyError(err error, viaProxy bool) types.FailureKind {
	var opErr *net.OpError
	if viaProxy && errors.As(err, &opErr) && opErr.Op == "proxyconnect" {
		return types.FailureProxy
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.FailureTimeout
	}
	return types.FailureNetwork
}

func proxyHost(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Host
}
