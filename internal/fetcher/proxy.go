package fetcher

import (
	"log/slog"
	"math/rand"
	"net/url"
	"sync/atomic"

	"github.com/IshaanNene/TopHub/internal/config"
)

// ProxyManager hands out proxies from a fixed pool, one per attempt.
type ProxyManager struct {
	proxies  []*url.URL
	rotation string
	index    atomic.Int64
	logger   *slog.Logger
}

// NewProxyManager creates a ProxyManager from configuration. Unparseable
// entries are logged and dropped.
func NewProxyManager(cfg *config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	pm := &ProxyManager{
		proxies:  make([]*url.URL, 0, len(cfg.URLs)),
		rotation: cfg.Rotation,
		logger:   logger.With("component", "proxy_manager"),
	}

	for _, rawURL := range cfg.URLs {
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" {
			pm.logger.Warn("invalid proxy URL", "url", rawURL, "error", err)
			continue
		}
		pm.proxies = append(pm.proxies, u)
	}

	if len(pm.proxies) > 0 {
		pm.logger.Info("proxy manager initialized", "count", len(pm.proxies), "rotation", pm.rotation)
	}
	return pm
}

// Next returns the proxy for the next attempt, or nil when the pool is empty.
// Round robin starts at the first configured proxy.
func (pm *ProxyManager) Next() *url.URL {
	if pm == nil {
		return nil
	}
	n := int64(len(pm.proxies))
	if n == 0 {
		return nil
	}

	switch pm.rotation {
	case "random":
		return pm.proxies[rand.Int63n(n)]
	default: // round_robin
		idx := (pm.index.Add(1) - 1) % n
		return pm.proxies[idx]
	}
}

// Count returns the number of usable proxies.
func (pm *ProxyManager) Count() int {
	if pm == nil {
		return 0
	}
	return len(pm.proxies)
}
