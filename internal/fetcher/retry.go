package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/IshaanNene/TopHub/internal/config"
	"github.com/IshaanNene/TopHub/internal/types"
)

// State is a step of the retry state machine.
type State int

const (
	StateWaiting State = iota
	StateRequesting
	StateBackingOff
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateRequesting:
		return "requesting"
	case StateBackingOff:
		return "backing_off"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted_retries"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// StateHook observes every transition together with the 0-based attempt index.
type StateHook func(state State, attempt int, err error)

// Retrier drives a Fetcher through Waiting, Requesting, BackingOff and one of
// the terminal states Succeeded or ExhaustedRetries.
type Retrier struct {
	fetcher     Fetcher
	proxies     *ProxyManager
	maxAttempts int
	minDelay    time.Duration
	maxDelay    time.Duration
	sleep       Sleeper
	random      func() float64
	hook        StateHook
	logger      *slog.Logger
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithSleeper replaces the context-aware timer sleep.
func WithSleeper(s Sleeper) RetrierOption {
	return func(r *Retrier) { r.sleep = s }
}

// WithRandom replaces the uniform [0,1) source used for delays and jitter.
func WithRandom(f func() float64) RetrierOption {
	return func(r *Retrier) { r.random = f }
}

// WithStateHook registers an observer for state transitions.
func WithStateHook(h StateHook) RetrierOption {
	return func(r *Retrier) { r.hook = h }
}

// NewRetrier creates a Retrier. proxies may be nil for direct connections.
func NewRetrier(f Fetcher, proxies *ProxyManager, cfg *config.ScraperConfig, logger *slog.Logger, opts ...RetrierOption) *Retrier {
	minDelay, maxDelay := cfg.DelayBounds()
	r := &Retrier{
		fetcher:     f,
		proxies:     proxies,
		maxAttempts: max(cfg.MaxRetries, 1),
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		sleep:       sleepContext,
		random:      rand.Float64,
		logger:      logger.With("component", "retrier"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get fetches target and returns the body of the first successful attempt.
// When every attempt fails the error wraps types.ErrMaxRetries and the last
// attempt's failure. Cancellation of ctx ends the loop with ctx.Err().
func (r *Retrier) Get(ctx context.Context, target string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		r.enter(StateWaiting, attempt, nil)
		if err := r.sleep(ctx, r.requestDelay()); err != nil {
			return "", err
		}

		proxy := r.proxies.Next()
		r.enter(StateRequesting, attempt, nil)
		page, err := r.fetcher.Fetch(ctx, target, proxy)
		if err == nil {
			r.enter(StateSucceeded, attempt, nil)
			r.logger.Info("fetch succeeded", "url", target, "attempt", attempt+1, "size", len(page.Body))
			return string(page.Body), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		r.logger.Warn("attempt failed",
			"url", target,
			"attempt", attempt+1,
			"max_attempts", r.maxAttempts,
			"kind", types.KindOf(err),
			"proxy", proxyHost(proxy),
			"error", err,
		)

		if attempt+1 >= r.maxAttempts {
			break
		}

		wait := r.backoff(attempt)
		r.enter(StateBackingOff, attempt, err)
		r.logger.Info("backing off", "attempt", attempt+1, "wait", wait)
		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}

	r.enter(StateExhausted, r.maxAttempts-1, lastErr)
	r.logger.Error("all attempts failed", "url", target, "attempts", r.maxAttempts, "error", lastErr)
	return "", fmt.Errorf("%w after %d attempts: %w", types.ErrMaxRetries, r.maxAttempts, lastErr)
}

// requestDelay draws the pre-attempt pause uniformly from [minDelay, maxDelay).
func (r *Retrier) requestDelay() time.Duration {
	span := r.maxDelay - r.minDelay
	if span <= 0 {
		return r.minDelay
	}
	return r.minDelay + time.Duration(r.random()*float64(span))
}

// backoff returns 2^attempt seconds plus up to one second of jitter.
func (r *Retrier) backoff(attempt int) time.Duration {
	secs := math.Pow(2, float64(attempt)) + r.random()
	return time.Duration(secs * float64(time.Second))
}

func (r *Retrier) enter(s State, attempt int, err error) {
	if r.hook != nil {
		r.hook(s, attempt, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
