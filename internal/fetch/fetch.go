// Package fetch retrieves raw source content over HTTP with retry, an
// access-denied fallback identity, per-host rate limiting, and a
// run-lifetime content cache.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/verify-cli/internal/resilience"
)

// FetchError is a terminal content-retrieval failure. It is a local,
// recoverable condition for the batch: the item is recorded UNVERIFIED, the
// run continues.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: http %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures the Fetcher.
type Options struct {
	UserAgent string
	// FallbackUserAgent is the alternate client identity tried once when a
	// source answers 403.
	FallbackUserAgent string
	Timeout           time.Duration
	MaxBodyBytes      int64
	Retry             resilience.RetryConfig
	// RequestsPerSecond bounds per-host request rate. Zero means 2 rps.
	RequestsPerSecond float64
}

// DefaultFallbackUserAgent mimics a desktop browser; some news sites deny
// non-browser identities with 403.
const DefaultFallbackUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Fetcher retrieves raw text for URLs. Successful fetches populate the
// shared cache; concurrent fetches of the same URL are allowed and the last
// writer wins.
type Fetcher struct {
	client   *http.Client
	opts     Options
	cache    Cache
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Fetcher with the given options and cache. A nil cache gets a
// fresh in-memory cache.
func New(opts Options, cache Cache) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "verify-cli/1.0"
	}
	if opts.FallbackUserAgent == "" {
		opts.FallbackUserAgent = DefaultFallbackUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 25 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}
	if cache == nil {
		cache = NewMemoryCache()
	}

	// Relaxed TLS verification: misconfigured news sites are common and the
	// content is cross-checked against the oracle anyway.
	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return eris.New("stopped after 10 redirects")
				}
				return nil
			},
		},
		opts:     opts,
		cache:    cache,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Cache exposes the fetcher's content cache for sharing across collaborators.
func (f *Fetcher) Cache() Cache { return f.cache }

// Fetch returns the raw text at rawURL, consulting the cache first. All
// transport failures and non-2xx statuses are retried under the shared
// policy; exhaustion surfaces a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", &FetchError{URL: rawURL, Err: eris.New("empty url")}
	}

	if content, ok := f.cache.Get(rawURL); ok {
		return content, nil
	}

	cfg := f.opts.Retry
	cfg.ShouldRetry = func(error) bool { return true } // every fetch failure is worth retrying
	cfg.OnRetry = resilience.RetryLogger("fetch", rawURL)

	content, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return f.fetchOnce(ctx, rawURL)
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return "", fe
		}
		return "", &FetchError{URL: rawURL, Err: err}
	}

	f.cache.Put(rawURL, content)
	return content, nil
}

// fetchOnce performs a single GET, falling back to the alternate client
// identity once on 403.
func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	content, status, err := f.get(ctx, rawURL, f.opts.UserAgent)
	if err != nil {
		return "", err
	}

	if status == http.StatusForbidden {
		zap.L().Debug("fetch: access denied, retrying with fallback identity",
			zap.String("url", rawURL),
		)
		content, status, err = f.get(ctx, rawURL, f.opts.FallbackUserAgent)
		if err != nil {
			return "", err
		}
	}

	if status < 200 || status >= 300 {
		return "", &FetchError{URL: rawURL, StatusCode: status}
	}

	return content, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL, userAgent string) (string, int, error) {
	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return "", 0, eris.Wrap(err, "fetch: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", 0, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, eris.Wrap(err, "fetch: do request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, eris.Wrap(err, "fetch: read body")
	}

	return string(body), resp.StatusCode, nil
}

func (f *Fetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(f.opts.RequestsPerSecond), 2)
		f.limiters[host] = lim
	}
	return lim
}
