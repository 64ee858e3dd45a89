package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for the TopHub scraper.
type Config struct {
	Target   TargetConfig   `mapstructure:"target"   yaml:"target"`
	Scraper  ScraperConfig  `mapstructure:"scraper"  yaml:"scraper"`
	Proxy    ProxyConfig    `mapstructure:"proxy"    yaml:"proxy"`
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// TargetConfig names the page to scrape and the origin used to absolutize links.
type TargetConfig struct {
	URL    string `mapstructure:"url"    yaml:"url"`
	Origin string `mapstructure:"origin" yaml:"origin"`
}

// ScraperConfig controls the plain HTTP path and the retry controller.
type ScraperConfig struct {
	Mode            string        `mapstructure:"mode"              yaml:"mode"`
	DelayRange      []float64     `mapstructure:"delay_range"       yaml:"delay_range"`
	MaxRetries      int           `mapstructure:"max_retries"       yaml:"max_retries"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	RandomUserAgent bool          `mapstructure:"random_user_agent" yaml:"random_user_agent"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
}

// ProxyConfig controls proxy rotation.
type ProxyConfig struct {
	Rotation string   `mapstructure:"rotation" yaml:"rotation"`
	URLs     []string `mapstructure:"urls"     yaml:"urls"`
}

// BrowserConfig controls the rendering driver.
type BrowserConfig struct {
	Headless     bool          `mapstructure:"headless"      yaml:"headless"`
	WindowWidth  int           `mapstructure:"window_width"  yaml:"window_width"`
	WindowHeight int           `mapstructure:"window_height" yaml:"window_height"`
	PageTimeout  time.Duration `mapstructure:"page_timeout"  yaml:"page_timeout"`
	UserDataDir  string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	Bin          string        `mapstructure:"bin"           yaml:"bin"`
	UserAgent    string        `mapstructure:"user_agent"    yaml:"user_agent"`
	ScrollPause  time.Duration `mapstructure:"scroll_pause"  yaml:"scroll_pause"`
	MaxScrolls   int           `mapstructure:"max_scrolls"   yaml:"max_scrolls"`
}

// StorageConfig controls output sinks.
type StorageConfig struct {
	OutputDir string      `mapstructure:"output_dir" yaml:"output_dir"`
	Formats   []string    `mapstructure:"formats"    yaml:"formats"`
	Mongo     MongoConfig `mapstructure:"mongo"      yaml:"mongo"`
}

// MongoConfig enables the MongoDB sink when URI is set.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// ScheduleConfig controls the periodic scrape loop.
type ScheduleConfig struct {
	IntervalHours int `mapstructure:"interval_hours" yaml:"interval_hours"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file"   yaml:"file"`
}

// MetricsConfig controls the metrics endpoint of the serve command.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DelayBounds returns the per-attempt delay range as durations.
func (c *ScraperConfig) DelayBounds() (time.Duration, time.Duration) {
	if len(c.DelayRange) != 2 {
		return 0, 0
	}
	return secondsToDuration(c.DelayRange[0]), secondsToDuration(c.DelayRange[1])
}

// Interval returns the scheduling interval.
func (c *ScheduleConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			URL:    "https://tophub.today/c/news",
			Origin: "https://tophub.today",
		},
		Scraper: ScraperConfig{
			Mode:           "http",
			DelayRange:     []float64{2, 3},
			MaxRetries:     3,
			RequestTimeout: 30 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
			},
			MaxBodySize: 10 * 1024 * 1024, // 10MB
		},
		Proxy: ProxyConfig{
			Rotation: "round_robin",
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1920,
			WindowHeight: 1080,
			PageTimeout:  30 * time.Second,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			ScrollPause:  1 * time.Second,
			MaxScrolls:   50,
		},
		Storage: StorageConfig{
			OutputDir: "./output",
			Formats:   []string{"json", "csv"},
			Mongo: MongoConfig{
				Database:   "tophub",
				Collection: "hot_items",
			},
		},
		Schedule: ScheduleConfig{
			IntervalHours: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
