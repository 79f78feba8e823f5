package collector

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/IANewCool/estado-transparente-portal/metrics"
)

// FetchTimeout bounds one HTTP fetch end to end.
const FetchTimeout = 60 * time.Second

// UserAgent identifies the collector to upstream sites and robots.txt.
const UserAgent = "EstadoTransparenteBot/1.0 (+https://estadotransparente.cl)"

// maxFetchRetries is the number of retries after the first attempt for
// transient failures (network errors, 5xx).
const maxFetchRetries = 2

// Fetcher downloads source bodies under the politeness rules: a minimum
// inter-request delay of one second per source and robots.txt compliance.
type Fetcher struct {
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	robots   map[string]*robotstxt.RobotsData
}

// NewFetcher creates a fetcher with the default HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: FetchTimeout},
		limiters: make(map[string]*rate.Limiter),
		robots:   make(map[string]*robotstxt.RobotsData),
	}
}

// NewFetcherWithClient creates a fetcher around a custom HTTP client (tests).
func NewFetcherWithClient(client *http.Client) *Fetcher {
	f := NewFetcher()
	f.client = client
	return f
}

// Fetch downloads rawURL and returns the body bytes plus the MIME type
// reported by the server ("" when unknown). file URLs bypass politeness.
func (f *Fetcher) Fetch(ctx context.Context, sourceID, rawURL string, counters *metrics.Collector) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}

	if u.Scheme == "file" {
		counters.IncFetchAttempts()
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", u.Path, err)
		}
		return data, "", nil
	}

	if err := f.limiter(sourceID).Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limit wait: %w", err)
	}
	if err := f.checkRobots(ctx, u); err != nil {
		return nil, "", err
	}

	var body []byte
	var mimeType string
	op := func() error {
		counters.IncFetchAttempts()
		var err error
		body, mimeType, err = f.doGet(ctx, rawURL)
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxFetchRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, "", err
	}
	return body, mimeType, nil
}

// doGet performs one GET. Non-2xx statuses below 500 are permanent; 5xx
// and transport errors are retriable.
func (f *Fetcher) doGet(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused before retrying.
		_, _ = io.Copy(io.Discard, resp.Body)
		err := fmt.Errorf("get %s: unexpected status %d", rawURL, resp.StatusCode)
		if resp.StatusCode >= 500 {
			return nil, "", err
		}
		return nil, "", backoff.Permanent(err)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	mimeType := ""
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			mimeType = parsed
		}
	}
	return body, mimeType, nil
}

// limiter returns the per-source limiter: one request per second, burst 1.
func (f *Fetcher) limiter(sourceID string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[sourceID]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Second), 1)
		f.limiters[sourceID] = l
	}
	return l
}

// checkRobots enforces robots.txt for the URL's host. The robots file is
// fetched once per host and cached for the fetcher's lifetime. Unreachable
// robots files allow the fetch (the standard's fail-open behavior, which
// the robotstxt library also applies to 404s).
func (f *Fetcher) checkRobots(ctx context.Context, u *url.URL) error {
	f.mu.Lock()
	data, ok := f.robots[u.Host]
	f.mu.Unlock()

	if !ok {
		data = f.fetchRobots(ctx, u)
		f.mu.Lock()
		f.robots[u.Host] = data
		f.mu.Unlock()
	}

	if data == nil {
		return nil
	}
	if !data.TestAgent(u.Path, UserAgent) {
		return fmt.Errorf("robots.txt of %s disallows %s", u.Host, u.Path)
	}
	return nil
}

// fetchRobots downloads and parses robots.txt, returning nil on any error.
func (f *Fetcher) fetchRobots(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}
