package valuation

import (
	"context"
	"log/slog"

	"github.com/FranksOps/comps/internal/listing"
	"github.com/FranksOps/comps/internal/metrics"
)

// DefaultMaxResults caps accepted prices per query when the caller does
// not say otherwise. Five recent sold prices is a usable sample for a
// quick estimate without scanning deep into stale results.
const DefaultMaxResults = 5

// Config configures an Engine. Zero values get sensible defaults.
type Config struct {
	// Source supplies candidate listings per query. Required.
	Source listing.Source

	// MaxResults caps accepted raw prices per query. Defaults to
	// DefaultMaxResults.
	MaxResults int

	// Concurrency bounds how many queries EvaluateBatch runs at once.
	// Values below 2 mean strictly sequential evaluation.
	Concurrency int

	Logger *slog.Logger
}

// Engine evaluates queries end to end: it pulls candidate listings from
// its Source and aggregates them into Summaries. Engines are safe for
// concurrent use; they hold no per-query state.
type Engine struct {
	source      listing.Source
	maxResults  int
	concurrency int
	logger      *slog.Logger
}

// NewEngine builds an Engine from cfg.
func NewEngine(cfg Config) *Engine {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		source:      cfg.Source,
		maxResults:  cfg.MaxResults,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Evaluate returns the price summary for one query. Fetch failures never
// escape as errors; they come back inside the Summary with zeroed
// statistics, so a batch caller can keep going.
func (e *Engine) Evaluate(ctx context.Context, query string) Summary {
	candidates, err := e.source.Listings(ctx, query)
	if err != nil {
		e.logger.Warn("listing fetch failed", "query", query, "error", err)
		metrics.RecordQuery("fetch_error")
		return Summary{
			Query:         query,
			RawPrices:     []string{},
			CleanedPrices: []float64{},
			Error:         err.Error(),
		}
	}

	s := Aggregate(candidates, query, e.maxResults)
	if s.Count == 0 {
		e.logger.Info("no qualifying listings", "query", query, "candidates", len(candidates))
		metrics.RecordQuery("no_listings")
		return s
	}

	e.logger.Info("query priced",
		"query", query,
		"count", s.Count,
		"average", s.AveragePrice,
		"median", s.MedianPrice,
	)
	metrics.RecordQuery("priced")
	return s
}
