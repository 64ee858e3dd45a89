package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Target.URL); err != nil {
		return fmt.Errorf("target.url: %w", err)
	}
	if err := ValidateURL(cfg.Target.Origin); err != nil {
		return fmt.Errorf("target.origin: %w", err)
	}

	if cfg.Scraper.Mode != "http" && cfg.Scraper.Mode != "browser" {
		return fmt.Errorf("scraper.mode must be 'http' or 'browser', got %q", cfg.Scraper.Mode)
	}
	if len(cfg.Scraper.DelayRange) != 2 {
		return fmt.Errorf("scraper.delay_range must have exactly 2 values, got %d", len(cfg.Scraper.DelayRange))
	}
	if lo, hi := cfg.Scraper.DelayRange[0], cfg.Scraper.DelayRange[1]; lo < 0 || hi < lo {
		return fmt.Errorf("scraper.delay_range must satisfy 0 <= min <= max, got [%g, %g]", lo, hi)
	}
	if cfg.Scraper.MaxRetries < 1 {
		return fmt.Errorf("scraper.max_retries must be >= 1, got %d", cfg.Scraper.MaxRetries)
	}
	if cfg.Scraper.RequestTimeout <= 0 {
		return fmt.Errorf("scraper.request_timeout must be > 0")
	}
	if cfg.Scraper.MaxBodySize <= 0 {
		return fmt.Errorf("scraper.max_body_size must be > 0")
	}

	if cfg.Proxy.Rotation != "round_robin" && cfg.Proxy.Rotation != "random" {
		return fmt.Errorf("proxy.rotation must be 'round_robin' or 'random', got %q", cfg.Proxy.Rotation)
	}
	for _, proxyURL := range cfg.Proxy.URLs {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid proxy URL %q: missing host", proxyURL)
		}
	}

	if cfg.Browser.WindowWidth <= 0 || cfg.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window size must be positive, got %dx%d", cfg.Browser.WindowWidth, cfg.Browser.WindowHeight)
	}
	if cfg.Browser.PageTimeout <= 0 {
		return fmt.Errorf("browser.page_timeout must be > 0")
	}
	if cfg.Browser.MaxScrolls < 1 {
		return fmt.Errorf("browser.max_scrolls must be >= 1, got %d", cfg.Browser.MaxScrolls)
	}

	if cfg.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir must not be empty")
	}
	validFormats := map[string]bool{"json": true, "csv": true}
	for _, f := range cfg.Storage.Formats {
		if !validFormats[f] {
			return fmt.Errorf("storage.formats entry %q is not supported (valid: json, csv)", f)
		}
	}
	if cfg.Storage.Mongo.URI != "" && (cfg.Storage.Mongo.Database == "" || cfg.Storage.Mongo.Collection == "") {
		return fmt.Errorf("storage.mongo requires database and collection when uri is set")
	}

	if cfg.Schedule.IntervalHours < 1 {
		return fmt.Errorf("schedule.interval_hours must be >= 1, got %d", cfg.Schedule.IntervalHours)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
