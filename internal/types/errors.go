package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrMaxRetries    = errors.New("max retries exceeded")
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrNoContainers  = errors.New("no ranking containers found")
	ErrBodyTooLarge  = errors.New("response body exceeds size limit")
)

// FailureKind classifies a failed fetch attempt.
type FailureKind string

const (
	FailureProxy       FailureKind = "proxy"
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureHTTP        FailureKind = "http"
	FailureNetwork     FailureKind = "network"
)

// FetchError wraps errors that occur during a single fetch attempt.
type FetchError struct {
	URL        string
	Kind       FailureKind
	StatusCode int
	Proxy      string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (%s, status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsRateLimited reports whether the server answered with HTTP 429.
func (e *FetchError) IsRateLimited() bool { return e.Kind == FailureRateLimited }

// KindOf returns the failure kind of err, or "" when err is not a FetchError.
func KindOf(err error) FailureKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// RenderError is a fatal failure of the browser rendering path.
type RenderError struct {
	URL   string
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error for %s at %s: %v", e.URL, e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ParseError wraps errors raised while extracting a container or item.
type ParseError struct {
	Platform string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %q (selector=%q): %v", e.Platform, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
