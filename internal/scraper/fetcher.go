package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 8 << 20

// Fetcher is a polite HTTP client: robots.txt compliance, per-host rate
// limiting and a short-lived response cache.
type Fetcher struct {
	client    *http.Client
	robots    *RobotsChecker
	cache     *gocache.Cache
	userAgent string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
}

func NewFetcher(userAgent string, requestsPerSecond float64, burst int, cacheTTL time.Duration) *Fetcher {
	if burst <= 0 {
		burst = 2
	}
	return &Fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		robots:    NewRobotsChecker(userAgent, 10*time.Second),
		cache:     gocache.New(cacheTTL, 2*cacheTTL),
		userAgent: userAgent,
		limiters:  make(map[string]*rate.Limiter),
		perHost:   rate.Limit(requestsPerSecond),
		burst:     burst,
	}
}

// Get fetches rawURL respecting robots.txt and the per-host rate limit.
// Responses are cached for the configured TTL; bodies are capped at 8 MiB.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if cached, ok := f.cache.Get(rawURL); ok {
		return cached.([]byte), nil
	}

	allowed, crawlDelay, err := f.robots.Allowed(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("robots.txt disallows %s", rawURL)
	}

	if err := f.wait(ctx, rawURL, crawlDelay); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}

	f.cache.Set(rawURL, body, gocache.DefaultExpiration)
	return body, nil
}

func (f *Fetcher) wait(ctx context.Context, rawURL string, crawlDelay time.Duration) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	f.mu.Lock()
	limiter, ok := f.limiters[parsed.Host]
	if !ok {
		limiter = rate.NewLimiter(f.perHost, f.burst)
		f.limiters[parsed.Host] = limiter
	}
	f.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return err
	}
	if crawlDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(crawlDelay):
		}
	}
	return nil
}
