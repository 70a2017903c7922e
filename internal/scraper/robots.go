package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGate is an optional politeness check run before search fetches. It
// caches robots.txt per origin and fails open: when the robots file cannot
// be fetched or parsed, the fetch proceeds.
type RobotsGate struct {
	fetcher *Fetcher
	logger  *slog.Logger

	mu    sync.RWMutex
	rules map[string]*robotstxt.RobotsData // nil entry: unavailable or unrestricted
}

// NewRobotsGate builds a gate that fetches robots files through fetcher.
func NewRobotsGate(fetcher *Fetcher, logger *slog.Logger) *RobotsGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsGate{
		fetcher: fetcher,
		logger:  logger,
		rules:   make(map[string]*robotstxt.RobotsData),
	}
}

// IsAllowed reports whether the origin's robots.txt permits userAgent to
// fetch targetURL. Only an unparseable target returns an error; robots
// trouble logs and allows.
func (r *RobotsGate) IsAllowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("parse target url: %w", err)
	}

	origin := u.Scheme + "://" + u.Host
	rules, err := r.lookup(ctx, origin)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing fetch", "origin", origin, "err", err)
		return true, nil
	}
	if rules == nil {
		return true, nil
	}

	return rules.FindGroup(userAgent).Test(u.Path), nil
}

// lookup returns the cached rules for origin, fetching them once on first
// use. Failures cache a nil entry so a broken robots.txt is not re-fetched
// on every query.
func (r *RobotsGate) lookup(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	rules, ok := r.rules[origin]
	r.mu.RUnlock()
	if ok {
		return rules, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rules, ok := r.rules[origin]; ok {
		return rules, nil
	}

	rules, err := r.fetchRules(ctx, origin)
	r.rules[origin] = rules
	return rules, err
}

func (r *RobotsGate) fetchRules(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	snap := r.fetcher.Fetch(ctx, origin+"/robots.txt")
	if snap.FetchError != "" {
		return nil, fmt.Errorf("fetch robots.txt: %s", snap.FetchError)
	}
	if snap.StatusCode >= 400 {
		// Missing or forbidden robots.txt means no restrictions
		return nil, nil
	}

	rules, err := robotstxt.FromBytes(snap.Body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return rules, nil
}
