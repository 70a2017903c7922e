package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/FranksOps/comps/internal/listing"
	"github.com/FranksOps/comps/internal/metrics"
	"github.com/FranksOps/comps/internal/storage"
	"github.com/FranksOps/comps/pkg/useragent"
)

// DefaultBaseURL is the eBay search endpoint for the US marketplace.
const DefaultBaseURL = "https://www.ebay.com/sch/i.html"

// SearchConfig configures a Search source.
type SearchConfig struct {
	// BaseURL overrides the search endpoint, e.g. for another eBay TLD or a
	// test server. Defaults to DefaultBaseURL.
	BaseURL string
	// Fetcher executes the page fetches. Required.
	Fetcher *Fetcher
	// Robots optionally gates fetches on the host's robots.txt.
	Robots *RobotsGate
	// UserAgent is the identity presented to the robots gate. Defaults to
	// the pinned useragent.Default.
	UserAgent string
	// Snapshots optionally archives every fetched page, including failures
	// and challenge pages.
	Snapshots storage.Backend
	// SnapshotBackend labels snapshot save metrics (e.g. "sqlite").
	SnapshotBackend string
	Logger          *slog.Logger
}

// Search fetches sold/completed eBay listings for a query. It implements
// listing.Source.
type Search struct {
	baseURL         string
	fetcher         *Fetcher
	robots          *RobotsGate
	userAgent       string
	snapshots       storage.Backend
	snapshotBackend string
	logger          *slog.Logger
}

var _ listing.Source = (*Search)(nil)

// NewSearch creates a Search source from the given configuration.
func NewSearch(cfg SearchConfig) (*Search, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("scraper: fetcher is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = useragent.Default
	}
	if cfg.SnapshotBackend == "" {
		cfg.SnapshotBackend = "custom"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Search{
		baseURL:         cfg.BaseURL,
		fetcher:         cfg.Fetcher,
		robots:          cfg.Robots,
		userAgent:       cfg.UserAgent,
		snapshots:       cfg.Snapshots,
		snapshotBackend: cfg.SnapshotBackend,
		logger:          cfg.Logger,
	}, nil
}

// Listings fetches the sold/completed search page for the query and parses
// its result cards. Fetch-level failures (transport errors, challenge pages,
// bad statuses, robots denials) come back as errors for the caller to fold
// into its result.
func (s *Search) Listings(ctx context.Context, query string) ([]listing.Listing, error) {
	target := s.searchURL(query)

	if s.robots != nil {
		allowed, err := s.robots.IsAllowed(ctx, target, s.userAgent)
		if err == nil && !allowed {
			s.logger.Warn("robots.txt disallows search fetch", "url", target)
			return nil, fmt.Errorf("robots.txt disallows fetching %s", target)
		}
	}

	snap := s.fetcher.Fetch(ctx, target)
	snap.Query = query
	s.saveSnapshot(ctx, snap)

	if snap.FetchError != "" {
		return nil, errors.New(snap.FetchError)
	}
	if snap.Challenged {
		return nil, fmt.Errorf("blocked by challenge page (%s)", snap.ChallengeSrc)
	}
	if snap.StatusCode < 200 || snap.StatusCode > 299 {
		return nil, fmt.Errorf("search returned status %d", snap.StatusCode)
	}

	candidates, err := parseListings(snap.Body, http.Header(snap.Headers).Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	s.logger.Debug("parsed search page",
		"query", query,
		"candidates", len(candidates),
		"bytes", len(snap.Body),
		"duration", snap.Duration,
	)

	return candidates, nil
}

// searchURL builds the sold/completed/new-condition search URL, sorted by
// most recently ended.
func (s *Search) searchURL(query string) string {
	params := url.Values{}
	params.Set("_nkw", query)
	params.Set("LH_Sold", "1")
	params.Set("LH_Complete", "1")
	params.Set("LH_ItemCondition", "1000")
	params.Set("_sop", "13")
	return s.baseURL + "?" + params.Encode()
}

// saveSnapshot archives the page when a backend is attached. Save failures
// are logged and never fail the query.
func (s *Search) saveSnapshot(ctx context.Context, snap *storage.Snapshot) {
	if s.snapshots == nil {
		return
	}
	err := s.snapshots.Save(ctx, snap)
	metrics.RecordSnapshotSave(s.snapshotBackend, err)
	if err != nil {
		s.logger.Warn("failed to save page snapshot", "url", snap.URL, "err", err)
	}
}
