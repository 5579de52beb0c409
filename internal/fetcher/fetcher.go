// Package fetcher downloads the source page over plain HTTP.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/huangsam/casetrend/internal/contract"
	"github.com/huangsam/casetrend/schema"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// MaxBodyBytes caps how much of a response body is read.
const MaxBodyBytes = 10 << 20

// FetchError reports a failed download. StatusCode is zero when no
// response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// HTTPFetcher performs a single GET per call.
type HTTPFetcher struct {
	client *http.Client
	ua     string
	now    func() time.Time
}

var _ contract.Fetcher = &HTTPFetcher{}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) { f.ua = ua }
}

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) { f.client.Timeout = d }
}

// WithClock overrides the wall clock used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(f *HTTPFetcher) { f.now = now }
}

// New creates an HTTPFetcher with the CLI defaults.
func New(opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: contract.DefaultTimeout},
		ua:     contract.DefaultUserAgent,
		now:    time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// NewFromConfig creates an HTTPFetcher from the validated config.
func NewFromConfig(cfg *contract.Config) *HTTPFetcher {
	return New(WithTimeout(cfg.Timeout), WithUserAgent(cfg.UserAgent))
}

// Fetch GETs url and returns the body decoded to UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*schema.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")

	fetchedAt := f.now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	contentType := resp.Header.Get("Content-Type")
	reader, err := charset.NewReader(io.LimitReader(resp.Body, MaxBodyBytes+1), contentType)
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode charset: %w", err)}
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > MaxBodyBytes {
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)}
	}

	log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Int("size", len(body)).
		Str("content_type", contentType).
		Msg("fetched page")

	return &schema.FetchResult{
		URL:         url,
		Body:        body,
		ContentType: contentType,
		FetchedAt:   fetchedAt,
	}, nil
}
