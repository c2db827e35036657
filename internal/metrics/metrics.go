// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus counters and gauges for the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Refresh metrics
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqlens_refresh_total",
		Help: "Refresh runs by outcome",
	}, []string{"outcome"}) // outcome=success|partial|failure

	refreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eqlens_refresh_duration_seconds",
		Help:    "Time spent refreshing all catalog tickers",
		Buckets: prometheus.DefBuckets,
	})

	snapshotsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eqlens_snapshots_total",
		Help: "Number of company snapshots held after the last refresh",
	})

	lastRefreshTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eqlens_last_refresh_timestamp_seconds",
		Help: "Unix time of the last successful refresh",
	})

	// Upstream metrics
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqlens_upstream_requests_total",
		Help: "Upstream quote fetches by outcome",
	}, []string{"outcome"}) // outcome=success|not_found|error

	qualityLevels = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "eqlens_snapshot_quality",
		Help: "Snapshots by data quality level after the last refresh",
	}, []string{"level"}) // level=high|medium|low

	// Analysis metrics
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqlens_analyses_total",
		Help: "LLM analyses by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=company|perspective|search

	analysisDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eqlens_analysis_duration_seconds",
		Help:    "LLM generation latency by kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"kind"})

	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eqlens_http_requests_total",
		Help: "HTTP requests by route and status class",
	}, []string{"route", "status"})

	// Export metrics
	exportErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eqlens_export_errors_total",
		Help: "Failed snapshot export writes",
	})
)

func IncRefresh(outcome string)          { refreshTotal.WithLabelValues(outcome).Inc() }
func ObserveRefreshDuration(sec float64) { refreshDurationSeconds.Observe(sec) }
func RecordSnapshotCount(n int)          { snapshotsTotal.Set(float64(n)) }
func RecordLastRefresh(unixSec float64)  { lastRefreshTimestamp.Set(unixSec) }
func IncUpstreamRequest(outcome string)  { upstreamRequestsTotal.WithLabelValues(outcome).Inc() }
func IncExportError()                    { exportErrorsTotal.Inc() }

func RecordQualityCounts(high, medium, low int) {
	qualityLevels.WithLabelValues("high").Set(float64(high))
	qualityLevels.WithLabelValues("medium").Set(float64(medium))
	qualityLevels.WithLabelValues("low").Set(float64(low))
}

func IncAnalysis(kind, outcome string) {
	analysesTotal.WithLabelValues(kind, outcome).Inc()
}

func ObserveAnalysisDuration(kind string, sec float64) {
	analysisDurationSeconds.WithLabelValues(kind).Observe(sec)
}

func IncHTTPRequest(route, statusClass string) {
	httpRequestsTotal.WithLabelValues(route, statusClass).Inc()
}
