//go:build integration

package test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FranksOps/comps/internal/config"
	"github.com/FranksOps/comps/internal/pipeline"
	"github.com/FranksOps/comps/internal/storage"
	"github.com/FranksOps/comps/internal/storage/sqlite"
	"github.com/FranksOps/comps/internal/valuation"
)

const iphonePage = `<!DOCTYPE html>
<html><body><ul class="srp-results">
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/1">Shop on eBay</a>
    <span class="s-item__price">$20.00</span>
  </li>
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/2">Apple iPhone 12 64GB Blue</a>
    <span class="s-item__price">$350.00</span>
  </li>
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/3">Case for iPhone 12 Shockproof</a>
    <span class="s-item__price">$12.99</span>
  </li>
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/4">Apple iPhone 12 128GB Unlocked</a>
    <span class="s-item__price">$410.00</span>
  </li>
</ul></body></html>`

const unrelatedPage = `<!DOCTYPE html>
<html><body><ul class="srp-results">
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/5">Xbox Series X Console</a>
    <span class="s-item__price">$500.00</span>
  </li>
</ul></body></html>`

const challengePage = `<html><body><h1>Pardon Our Interruption</h1>
<p>Please verify yourself to continue.</p></body></html>`

func quietConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		MaxResults:      5,
		Concurrency:     1,
		BaseURL:         baseURL,
		HTTPTimeout:     5 * time.Second,
		MaxRedirects:    5,
		SnapshotBackend: config.BackendSQLite,
		SnapshotDSN:     filepath.Join(t.TempDir(), "comps_snapshots.db"),
		LogLevel:        slog.LevelError,
	}
}

// TestIntegration_BatchValuation runs a three-query batch against a fake
// marketplace: one priced query, one challenge block, one with no relevant
// sold listings. Every fetched page must land in the sqlite archive.
func TestIntegration_BatchValuation(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("_nkw") {
		case "iphone 12":
			fmt.Fprint(w, iphonePage)
		case "pokemon etb":
			fmt.Fprint(w, challengePage)
		default:
			fmt.Fprint(w, unrelatedPage)
		}
	}))
	defer ts.Close()

	cfg := quietConfig(t, ts.URL)
	cfg.SaveSnapshots = true

	ctx := context.Background()
	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	queries := []string{"iphone 12", "pokemon etb", "ps5 console"}
	summaries := p.Run(ctx, queries)

	if err := p.Close(ctx); err != nil {
		t.Fatalf("failed to close pipeline: %v", err)
	}

	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}

	// Query 1: priced from the two real phone listings
	got := summaries[0]
	if got.Query != "iphone 12" {
		t.Errorf("expected input order preserved, got %q first", got.Query)
	}
	if got.Error != "" {
		t.Fatalf("unexpected error for iphone 12: %s", got.Error)
	}
	if got.Count != 2 || got.AveragePrice != 380 || got.MedianPrice != 380 {
		t.Errorf("unexpected stats for iphone 12: %+v", got)
	}

	// Query 2: blocked by the interstitial
	got = summaries[1]
	if got.Error != "blocked by challenge page (Interstitial)" {
		t.Errorf("expected challenge error for pokemon etb, got %q", got.Error)
	}
	if got.Count != 0 || len(got.CleanedPrices) != 0 {
		t.Errorf("expected zeroed stats for blocked query, got %+v", got)
	}

	// Query 3: page loads but nothing matches the query tokens
	got = summaries[2]
	if got.Error != valuation.NoListingsMessage {
		t.Errorf("expected no-listings error for ps5 console, got %q", got.Error)
	}

	// Every fetch, including the challenge, must be archived
	backend, err := sqlite.New(cfg.SnapshotDSN)
	if err != nil {
		t.Fatalf("failed to reopen snapshot archive: %v", err)
	}
	defer backend.Close()

	snaps, err := backend.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("failed to query snapshots: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 archived snapshots, got %d", len(snaps))
	}

	challenged, err := backend.Query(ctx, storage.Filter{Query: "pokemon etb"})
	if err != nil {
		t.Fatalf("failed to query challenged snapshot: %v", err)
	}
	if len(challenged) != 1 || !challenged[0].Challenged || challenged[0].ChallengeSrc != "Interstitial" {
		t.Errorf("expected archived challenge snapshot, got %+v", challenged)
	}
}

// TestIntegration_ConcurrentBatch verifies per-query isolation when queries
// run in parallel: each summary must carry the price served for its own query.
func TestIntegration_ConcurrentBatch(t *testing.T) {
	prices := map[string]string{
		"widget alpha": "$100.00",
		"widget beta":  "$200.00",
		"gadget gamma": "$300.00",
		"gadget delta": "$400.00",
	}
	wantMin := map[string]float64{
		"widget alpha": 100,
		"widget beta":  200,
		"gadget gamma": 300,
		"gadget delta": 400,
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("_nkw")
		price, ok := prices[q]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><body><ul>
			<li class="s-item"><a href="https://www.ebay.com/itm/1">%s new</a> <span>%s</span></li>
		</ul></body></html>`, q, price)
	}))
	defer ts.Close()

	cfg := quietConfig(t, ts.URL)
	cfg.Concurrency = 4

	ctx := context.Background()
	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	defer p.Close(ctx)

	queries := []string{"widget alpha", "widget beta", "gadget gamma", "gadget delta"}
	summaries := p.Run(ctx, queries)

	if len(summaries) != 4 {
		t.Fatalf("expected 4 summaries, got %d", len(summaries))
	}
	for i, s := range summaries {
		if s.Query != queries[i] {
			t.Errorf("expected summary %d for %q, got %q", i, queries[i], s.Query)
		}
		if s.Error != "" {
			t.Errorf("unexpected error for %q: %s", s.Query, s.Error)
			continue
		}
		if s.Count != 1 || s.MinPrice != wantMin[s.Query] {
			t.Errorf("expected %q priced at %v, got %+v", s.Query, wantMin[s.Query], s)
		}
	}
}

// TestIntegration_RobotsGate verifies that a disallow rule stops the search
// fetch entirely and surfaces as a per-query error.
func TestIntegration_RobotsGate(t *testing.T) {
	var searchHits int
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /sch/\n")
	})
	mux.HandleFunc("/sch/i.html", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		searchHits++
		mu.Unlock()
		fmt.Fprint(w, iphonePage)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	cfg := quietConfig(t, ts.URL+"/sch/i.html")
	cfg.RespectRobots = true

	ctx := context.Background()
	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	defer p.Close(ctx)

	summaries := p.Run(ctx, []string{"iphone 12"})
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if !strings.Contains(summaries[0].Error, "robots.txt disallows") {
		t.Errorf("expected robots denial in summary, got %q", summaries[0].Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if searchHits != 0 {
		t.Errorf("expected no search fetches after robots denial, got %d", searchHits)
	}
}

// TestIntegration_PolitenessPacing verifies that the rate limiter spaces
// successive fetches.
func TestIntegration_PolitenessPacing(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		fmt.Fprint(w, iphonePage)
	}))
	defer ts.Close()

	cfg := quietConfig(t, ts.URL)
	cfg.RequestsPerSecond = 20 // 50ms interval
	cfg.RateJitter = 0

	ctx := context.Background()
	p, err := pipeline.New(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	defer p.Close(ctx)

	summaries := p.Run(ctx, []string{"iphone 12", "iphone 12"})
	for _, s := range summaries {
		if s.Error != "" {
			t.Fatalf("unexpected error: %s", s.Error)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(hits) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(hits))
	}
	// Generous slack: the gap must reflect the 50ms interval
	if gap := hits[1].Sub(hits[0]); gap < 30*time.Millisecond {
		t.Errorf("expected paced fetches, got gap %v", gap)
	}
}
