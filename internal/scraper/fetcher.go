package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/FranksOps/comps/internal/detect"
	"github.com/FranksOps/comps/internal/metrics"
	"github.com/FranksOps/comps/internal/storage"
	"github.com/FranksOps/comps/pkg/httpclient"
	"github.com/FranksOps/comps/pkg/ratelimit"
	"github.com/FranksOps/comps/pkg/useragent"
)

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	UAPool       *useragent.Pool
	Limiter      *ratelimit.Limiter
}

// Fetcher retrieves single pages and captures each exchange as a
// storage.Snapshot. Transport failures land in the snapshot's FetchError
// field; Fetch itself never returns a Go error.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
}

// NewFetcher builds a Fetcher around one shared HTTP client, so a cookie
// jar (when enabled) spans every fetch the Fetcher makes.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = httpclient.DefaultTimeout
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewFixed(useragent.Default)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
	})
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}
	return &Fetcher{config: cfg, client: client}, nil
}

// Fetch GETs the target URL and captures status, headers, body and
// timing into a snapshot, then runs challenge detection on it so callers
// can tell a block page from results.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) *storage.Snapshot {
	snap := &storage.Snapshot{
		ID:        uuid.New().String(),
		URL:       targetURL,
		CreatedAt: time.Now().UTC(),
	}
	defer metrics.RecordFetch(siteLabel(targetURL), snap)

	if f.config.Limiter != nil {
		if err := f.config.Limiter.Wait(ctx); err != nil {
			snap.FetchError = fmt.Sprintf("rate limiter failed: %v", err)
			return snap
		}
	}

	start := time.Now()
	snap.CreatedAt = start.UTC()
	defer func() { snap.Duration = time.Since(start) }()

	req, err := f.buildRequest(ctx, targetURL)
	if err != nil {
		snap.FetchError = fmt.Sprintf("build request: %v", err)
		return snap
	}

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		snap.FetchError = fmt.Sprintf("request failed: %v", err)
		return snap
	}
	defer resp.Body.Close()

	snap.StatusCode = resp.StatusCode
	snap.Headers = resp.Header

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		snap.FetchError = fmt.Sprintf("read body: %v", err)
	}
	snap.Body = body

	detect.Analyze(snap)
	return snap
}

// buildRequest assembles the GET request with browser-style Accept
// headers and the pool's next User-Agent.
func (f *Fetcher) buildRequest(ctx context.Context, targetURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	return req, nil
}

// siteLabel extracts the hostname for the metrics site dimension.
func siteLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Hostname()
}
