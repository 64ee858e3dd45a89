package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "tophub"

// Metrics tracks operational counters for the scraper. Each instance owns its
// registry, so several scrapers in one process do not collide.
type Metrics struct {
	// Scrape metrics
	ScrapesTotal  prometheus.Counter
	ScrapesFailed prometheus.Counter
	ScrapesEmpty  prometheus.Counter

	// Attempt metrics
	AttemptsTotal  prometheus.Counter
	AttemptsFailed prometheus.Counter
	Backoffs       prometheus.Counter
	RateLimited    prometheus.Counter
	Timeouts       prometheus.Counter
	ProxyErrors    prometheus.Counter

	// Item metrics
	ItemsScraped  prometheus.Counter
	ItemsStored   prometheus.Counter
	StorageErrors prometheus.Counter

	// Gauges
	LastItemCount  prometheus.Gauge
	LastScrapeUnix prometheus.Gauge

	registry *prometheus.Registry
	handler  http.Handler
	logger   *slog.Logger
}

// NewMetrics creates a Metrics instance with its collectors registered.
func NewMetrics(logger *slog.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{Namespace: MetricsNamespace, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{Namespace: MetricsNamespace, Name: name, Help: help})
	}

	m := &Metrics{
		ScrapesTotal:   counter("scrapes_total", "Total scrape runs"),
		ScrapesFailed:  counter("scrapes_failed_total", "Scrape runs that ended in an error"),
		ScrapesEmpty:   counter("scrapes_empty_total", "Scrape runs that returned no data"),
		AttemptsTotal:  counter("attempts_total", "Total fetch attempts"),
		AttemptsFailed: counter("attempts_failed_total", "Failed fetch attempts"),
		Backoffs:       counter("backoffs_total", "Backoff sleeps taken"),
		RateLimited:    counter("rate_limited_total", "Attempts answered with HTTP 429"),
		Timeouts:       counter("timeouts_total", "Attempts that timed out"),
		ProxyErrors:    counter("proxy_errors_total", "Attempts that failed at the proxy"),
		ItemsScraped:   counter("items_scraped_total", "Total items extracted"),
		ItemsStored:    counter("items_stored_total", "Total items written to sinks"),
		StorageErrors:  counter("storage_errors_total", "Sink write failures"),
		LastItemCount:  gauge("last_item_count", "Items extracted by the last run"),
		LastScrapeUnix: gauge("last_scrape_timestamp_seconds", "Unix time of the last run"),
		registry:       reg,
		logger:         logger.With("component", "metrics"),
	}
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	return m
}

// Registry exposes the underlying registry for callers that add collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordScrape updates the per-run counters after a scrape finishes.
func (m *Metrics) RecordScrape(items int, err error) {
	m.ScrapesTotal.Inc()
	m.LastScrapeUnix.SetToCurrentTime()
	m.LastItemCount.Set(float64(items))
	m.ItemsScraped.Add(float64(items))

	switch {
	case err != nil:
		m.ScrapesFailed.Inc()
	case items == 0:
		m.ScrapesEmpty.Inc()
	}
}

// RecordAttemptFailure counts a failed fetch attempt by failure kind.
func (m *Metrics) RecordAttemptFailure(kind string) {
	m.AttemptsFailed.Inc()
	switch kind {
	case "rate_limited":
		m.RateLimited.Inc()
	case "timeout":
		m.Timeouts.Inc()
	case "proxy":
		m.ProxyErrors.Inc()
	}
}

// ServeHTTP serves metrics in Prometheus exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// StartServer serves metrics and /health until ctx is cancelled.
func (m *Metrics) StartServer(ctx context.Context, port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"scrapes_total":    value(m.ScrapesTotal),
		"scrapes_failed":   value(m.ScrapesFailed),
		"scrapes_empty":    value(m.ScrapesEmpty),
		"attempts_total":   value(m.AttemptsTotal),
		"attempts_failed":  value(m.AttemptsFailed),
		"backoffs":         value(m.Backoffs),
		"rate_limited":     value(m.RateLimited),
		"timeouts":         value(m.Timeouts),
		"proxy_errors":     value(m.ProxyErrors),
		"items_scraped":    value(m.ItemsScraped),
		"items_stored":     value(m.ItemsStored),
		"storage_errors":   value(m.StorageErrors),
		"last_item_count":  value(m.LastItemCount),
		"last_scrape_unix": value(m.LastScrapeUnix),
	}
}

// value reads the current sample of a counter or gauge.
func value(metric prometheus.Metric) int64 {
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		return 0
	}
	switch {
	case out.Counter != nil:
		return int64(out.Counter.GetValue())
	case out.Gauge != nil:
		return int64(out.Gauge.GetValue())
	default:
		return 0
	}
}
