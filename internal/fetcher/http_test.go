package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestHTTPFetcher(t *testing.T, timeout time.Duration) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scraper.RequestTimeout = timeout
	f, err := NewHTTPFetcher(cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestHTTPFetcherSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	page, err := newTestHTTPFetcher(t, 5*time.Second).Fetch(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(page.Body))
	assert.Equal(t, http.StatusOK, page.StatusCode)

	assert.Equal(t, "https://tophub.today/", got.Get("Referer"))
	assert.Contains(t, got.Get("User-Agent"), "Mozilla/5.0")
	assert.Equal(t, "gzip, deflate, br", got.Get("Accept-Encoding"))
	assert.Equal(t, "navigate", got.Get("Sec-Fetch-Mode"))
	assert.Equal(t, "max-age=0", got.Get("Cache-Control"))
}

func TestHTTPFetcherDecompresses(t *testing.T) {
	const body = "<html>热榜</html>"

	tests := []struct {
		encoding string
		encode   func(t *testing.T) []byte
	}{
		{"gzip", func(t *testing.T) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			_, err := zw.Write([]byte(body))
			require.NoError(t, err)
			require.NoError(t, zw.Close())
			return buf.Bytes()
		}},
		{"deflate", func(t *testing.T) []byte {
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			_, err := zw.Write([]byte(body))
			require.NoError(t, err)
			require.NoError(t, zw.Close())
			return buf.Bytes()
		}},
		{"deflate", func(t *testing.T) []byte {
			var buf bytes.Buffer
			fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
			require.NoError(t, err)
			_, err = fw.Write([]byte(body))
			require.NoError(t, err)
			require.NoError(t, fw.Close())
			return buf.Bytes()
		}},
		{"br", func(t *testing.T) []byte {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			_, err := bw.Write([]byte(body))
			require.NoError(t, err)
			require.NoError(t, bw.Close())
			return buf.Bytes()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			payload := tt.encode(t)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tt.encoding)
				_, _ = w.Write(payload)
			}))
			defer srv.Close()

			page, err := newTestHTTPFetcher(t, 5*time.Second).Fetch(context.Background(), srv.URL, nil)
			require.NoError(t, err)
			assert.Equal(t, body, string(page.Body))
		})
	}
}

func TestHTTPFetcherClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   types.FailureKind
	}{
		{http.StatusTooManyRequests, types.FailureRateLimited},
		{http.StatusInternalServerError, types.FailureHTTP},
		{http.StatusForbidden, types.FailureHTTP},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := newTestHTTPFetcher(t, 5*time.Second).Fetch(context.Background(), srv.URL, nil)
			require.Error(t, err)

			var fe *types.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.kind, fe.Kind)
			assert.Equal(t, tt.status, fe.StatusCode)
		})
	}
}

func TestHTTPFetcherTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestHTTPFetcher(t, 50*time.Millisecond).Fetch(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, types.FailureTimeout, types.KindOf(err))
}

func TestHTTPFetcherProxyFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadProxy := &url.URL{Scheme: "http", Host: ln.Addr().String()}
	require.NoError(t, ln.Close())

	_, err = newTestHTTPFetcher(t, 5*time.Second).Fetch(context.Background(), "http://tophub.invalid/c/news", deadProxy)
	require.Error(t, err)

	var fe *types.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, types.FailureProxy, fe.Kind)
	assert.Equal(t, deadProxy.Host, fe.Proxy)
}

func TestHTTPFetcherRoutesThroughProxy(t *testing.T) {
	var requested string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.String()
		_, _ = w.Write([]byte("via proxy"))
	}))
	defer proxy.Close()

	proxyURL, err := url.Parse(proxy.URL)
	require.NoError(t, err)

	page, err := newTestHTTPFetcher(t, 5*time.Second).Fetch(context.Background(), "http://tophub.invalid/c/news", proxyURL)
	require.NoError(t, err)
	assert.Equal(t, "via proxy", string(page.Body))
	assert.Equal(t, "http://tophub.invalid/c/news", requested)
}

func TestHTTPFetcherBodyLimit(t *testing.T) {
	gzipped := func(n int) []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write(bytes.Repeat([]byte("a"), n))
		_ = zw.Close()
		return buf.Bytes()
	}

	tests := []struct {
		name     string
		encoding string
		payload  []byte
		wantErr  bool
	}{
		{"plain within limit", "", bytes.Repeat([]byte("a"), 100), false},
		{"plain over limit", "", bytes.Repeat([]byte("a"), 1024), true},
		{"gzip within limit", "gzip", gzipped(100), false},
		{"gzip decoded over limit", "gzip", gzipped(1024), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				_, _ = w.Write(tt.payload)
			}))
			defer srv.Close()

			f := newTestHTTPFetcher(t, 5*time.Second)
			f.cfg.MaxBodySize = 100

			page, err := f.Fetch(context.Background(), srv.URL, nil)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Len(t, page.Body, 100)
				return
			}
			require.Error(t, err)
			assert.Nil(t, page)
			assert.ErrorIs(t, err, types.ErrBodyTooLarge)
			assert.Equal(t, types.FailureHTTP, types.KindOf(err))
		})
	}
}
