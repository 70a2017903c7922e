// Package metrics collects Prometheus counters for the fetch, filter,
// and persistence stages, and serves them over HTTP when enabled.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/FranksOps/comps/internal/storage"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_fetch_requests_total",
			Help: "Total number of search page fetches executed",
		},
		[]string{"site", "status", "challenged"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comps_fetch_duration_seconds",
			Help:    "Duration of search page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"site"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_fetch_bytes_total",
			Help: "Total bytes downloaded across all search page fetches",
		},
		[]string{"site"},
	)

	ListingsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_listings_rejected_total",
			Help: "Candidate listings rejected by the filter cascade, by reason",
		},
		[]string{"reason"},
	)

	ListingsAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comps_listings_accepted_total",
			Help: "Candidate listings whose raw price was accepted",
		},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_queries_total",
			Help: "Evaluated queries by outcome (priced, no_listings, fetch_error)",
		},
		[]string{"outcome"},
	)

	SnapshotSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comps_snapshot_saves_total",
			Help: "Page snapshot save attempts by backend and status",
		},
		[]string{"backend", "status"},
	)
)

// RecordFetch updates the fetch metrics from a page snapshot. A snapshot
// with a FetchError counts under status "error" rather than a code.
func RecordFetch(site string, snap *storage.Snapshot) {
	if snap == nil {
		return
	}

	status := strconv.Itoa(snap.StatusCode)
	if snap.FetchError != "" {
		status = "error"
	}

	FetchRequestsTotal.WithLabelValues(site, status, strconv.FormatBool(snap.Challenged)).Inc()
	FetchDuration.WithLabelValues(site).Observe(snap.Duration.Seconds())
	FetchBytesTotal.WithLabelValues(site).Add(float64(len(snap.Body)))
}

// RecordRejection counts one filter-cascade rejection.
func RecordRejection(reason string) {
	ListingsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordAccepted counts one accepted raw price.
func RecordAccepted() {
	ListingsAcceptedTotal.Inc()
}

// RecordQuery counts one evaluated query by outcome.
func RecordQuery(outcome string) {
	QueriesTotal.WithLabelValues(outcome).Inc()
}

// RecordSnapshotSave counts one snapshot save attempt.
func RecordSnapshotSave(backend string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SnapshotSavesTotal.WithLabelValues(backend, status).Inc()
}

// Exporter serves the collected metrics over HTTP for scraping.
type Exporter struct {
	srv *http.Server
}

// Start exposes /metrics on the given port until Stop is called.
func Start(port int) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics listener failed", "error", err)
		}
	}()

	return &Exporter{srv: srv}
}

// Stop shuts the listener down, allowing up to five seconds for
// in-flight scrapes to finish.
func (e *Exporter) Stop(ctx context.Context) error {
	if e == nil || e.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return e.srv.Shutdown(ctx)
}
