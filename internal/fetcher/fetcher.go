package fetcher

import (
	"context"
	"net/url"
	"time"
)

// Page is the raw result of a single HTTP round trip.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Fetcher performs one request for target, optionally through proxy.
type Fetcher interface {
	// Fetch retrieves target. A nil proxy means a direct connection.
	Fetch(ctx context.Context, target string, proxy *url.URL) (*Page, error)

	// Close releases any resources held by the fetcher.
	Close() error
}
