package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/FranksOps/comps/internal/config"
	"github.com/FranksOps/comps/internal/metrics"
	"github.com/FranksOps/comps/internal/report"
	"github.com/FranksOps/comps/internal/scraper"
	"github.com/FranksOps/comps/internal/storage"
	"github.com/FranksOps/comps/internal/storage/csvbackend"
	"github.com/FranksOps/comps/internal/storage/jsonbackend"
	"github.com/FranksOps/comps/internal/storage/postgres"
	"github.com/FranksOps/comps/internal/storage/sqlite"
	"github.com/FranksOps/comps/internal/valuation"
	"github.com/FranksOps/comps/pkg/ratelimit"
	"github.com/FranksOps/comps/pkg/useragent"
)

// Pipeline wires configuration into a ready-to-run estimator: fetcher,
// optional robots gate and snapshot archive, valuation engine, and the
// metrics listener.
type Pipeline struct {
	logger    *slog.Logger
	engine    *valuation.Engine
	backend   storage.Backend
	limiter   *ratelimit.Limiter
	metricsrv *metrics.Exporter
}

// New builds a Pipeline from the given configuration.
func New(ctx context.Context, cfg *config.Config) (*Pipeline, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	var backend storage.Backend
	if cfg.SaveSnapshots {
		var err error
		backend, err = openBackend(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open snapshot backend: %w", err)
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = ratelimit.New(cfg.RequestsPerSecond, cfg.RateJitter)
	}

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:      cfg.HTTPTimeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: true,
		UAPool:       useragent.NewFixed(useragent.Default),
		Limiter:      limiter,
	})
	if err != nil {
		closeQuietly(backend, logger)
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	var robots *scraper.RobotsGate
	if cfg.RespectRobots {
		robots = scraper.NewRobotsGate(fetcher, logger)
	}

	source, err := scraper.NewSearch(scraper.SearchConfig{
		BaseURL:         cfg.BaseURL,
		Fetcher:         fetcher,
		Robots:          robots,
		Snapshots:       backend,
		SnapshotBackend: cfg.SnapshotBackend,
		Logger:          logger,
	})
	if err != nil {
		closeQuietly(backend, logger)
		return nil, fmt.Errorf("create search source: %w", err)
	}

	engine := valuation.NewEngine(valuation.Config{
		Source:      source,
		MaxResults:  cfg.MaxResults,
		Concurrency: cfg.Concurrency,
		Logger:      logger,
	})

	p := &Pipeline{
		logger:  logger,
		engine:  engine,
		backend: backend,
		limiter: limiter,
	}

	if cfg.MetricsPort > 0 {
		p.metricsrv = metrics.Start(cfg.MetricsPort)
		logger.Info("metrics listener started", "port", cfg.MetricsPort)
	}

	return p, nil
}

// Logger exposes the pipeline's logger for callers that want to share it.
func (p *Pipeline) Logger() *slog.Logger {
	return p.logger
}

// Run evaluates the batch of queries and returns one summary per query, in
// input order. Per-query failures are folded into the summaries; Run itself
// only stops early on context cancellation.
func (p *Pipeline) Run(ctx context.Context, queries []string) []valuation.Summary {
	return p.engine.EvaluateBatch(ctx, queries)
}

// Evaluate prices a single query.
func (p *Pipeline) Evaluate(ctx context.Context, query string) valuation.Summary {
	return p.engine.Evaluate(ctx, query)
}

// WriteReport renders the summaries to w in the requested format: "json",
// "text", or "html".
func (p *Pipeline) WriteReport(w io.Writer, format string, summaries []valuation.Summary) error {
	r := report.Build(summaries)
	switch format {
	case "json":
		return report.WriteJSON(w, r)
	case "text":
		return report.WriteText(w, r)
	case "html":
		return report.WriteHTML(w, r)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// Close releases the snapshot backend, rate limiter, and metrics listener.
func (p *Pipeline) Close(ctx context.Context) error {
	if p.limiter != nil {
		p.limiter.Stop()
	}

	var firstErr error
	if p.backend != nil {
		if err := p.backend.Close(); err != nil {
			firstErr = fmt.Errorf("close snapshot backend: %w", err)
		}
	}
	if p.metricsrv != nil {
		if err := p.metricsrv.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop metrics server: %w", err)
		}
	}
	return firstErr
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.SnapshotBackend {
	case config.BackendSQLite:
		return sqlite.New(cfg.SnapshotDSN)
	case config.BackendPostgres:
		return postgres.New(ctx, cfg.SnapshotDSN)
	case config.BackendCSV:
		return csvbackend.New(cfg.SnapshotDSN)
	case config.BackendJSON:
		return jsonbackend.New(cfg.SnapshotDSN)
	}
	return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
}

func closeQuietly(backend storage.Backend, logger *slog.Logger) {
	if backend == nil {
		return
	}
	if err := backend.Close(); err != nil {
		logger.Warn("failed to close snapshot backend", "err", err)
	}
}
