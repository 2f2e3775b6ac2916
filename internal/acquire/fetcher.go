package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrDisallowed is returned for URLs robots.txt forbids.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// FetcherOptions configure a Fetcher.
type FetcherOptions struct {
	UserAgent     string
	Delay         time.Duration
	Timeout       time.Duration
	CacheTTL      time.Duration
	RespectRobots bool
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// Fetcher performs polite, cached GET requests one at a time.
type Fetcher struct {
	client    *http.Client
	limiter   *Limiter
	robots    *RobotsChecker
	cache     *gocache.Cache
	cacheTTL  time.Duration
	userAgent string
}

// NewFetcher builds a fetcher from opts.
func NewFetcher(opts FetcherOptions) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	f := &Fetcher{
		client:    client,
		limiter:   NewLimiter(opts.Delay),
		userAgent: opts.UserAgent,
		cacheTTL:  opts.CacheTTL,
	}
	if opts.CacheTTL > 0 {
		f.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	if opts.RespectRobots {
		f.robots = NewRobotsChecker(opts.UserAgent, client)
	}
	return f
}

// Limiter exposes the fetcher's limiter so API clients can share its pacing.
func (f *Fetcher) Limiter() *Limiter {
	return f.limiter
}

// Client returns the underlying HTTP client.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Get returns the body of rawURL. Cached bodies skip the network and the
// limiter entirely.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if body, ok := f.cached(rawURL); ok {
		slog.Debug("Cache hit", "url", rawURL)
		return body, nil
	}

	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		f.limiter.SetDelay(crawlDelay)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if f.cache != nil {
		f.cache.Set(rawURL, body, f.cacheTTL)
	}
	return body, nil
}

// Remember stores a body under key, for callers that fetch through another
// client but want the same cache.
func (f *Fetcher) Remember(key string, body []byte) {
	if f.cache != nil {
		f.cache.Set(key, body, f.cacheTTL)
	}
}

// Recall returns a body stored by Get or Remember.
func (f *Fetcher) Recall(key string) ([]byte, bool) {
	return f.cached(key)
}

func (f *Fetcher) cached(key string) ([]byte, bool) {
	if f.cache == nil {
		return nil, false
	}
	if val, found := f.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}
