// Package fetcher retrieves server-rendered HTML over plain HTTP. No browser,
// no JS: the hydration payload is part of the SSR response.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultMaxBytes caps a response body (10 MiB).
const DefaultMaxBytes int64 = 10 << 20

// Result is the outcome of an HTTP fetch.
type Result struct {
	URL         string
	HTML        string
	StatusCode  int
	ContentType string
}

// Fetcher performs HTTP GETs for rendered pages.
type Fetcher struct {
	client       *http.Client
	ua           string
	maxBytes     int64
	allowPrivate bool
	logger       *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.ua = ua }
}

// WithMaxBytes caps the response body size. n <= 0 keeps the default.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithAllowPrivate disables the private-address check, for local dev
// servers.
func WithAllowPrivate(allow bool) Option {
	return func(f *Fetcher) { f.allowPrivate = allow }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		ua:       "Mozilla/5.0 (compatible; hydrate/1.0)",
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs pageURL. Non-2xx statuses are not errors: error pages carry
// payloads too (a serialized NuxtError, typically).
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	if err := validateURL(pageURL, f.allowPrivate); err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetcher: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetcher: do: %w", err)
	}
	defer resp.Body.Close()

	body, err := limitedReadAll(resp.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetcher: read body: %w", err)
	}

	f.logger.Debug("fetcher: fetched",
		"url", pageURL, "status", resp.StatusCode, "size", len(body))

	return &Result{
		URL:         pageURL,
		HTML:        string(body),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
