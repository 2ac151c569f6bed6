// internal/service/quickorder/application/metrics.go
package application

import "github.com/prometheus/client_golang/prometheus"

var (
	gridRebuildTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickorder_grid_rebuild_total",
			Help: "Number of full grid rebuilds, by trigger.",
		},
		[]string{"trigger"},
	)

	gridRebuildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quickorder_grid_rebuild_duration_seconds",
			Help:    "Latency of a full grid rebuild.",
			Buckets: prometheus.DefBuckets,
		},
	)

	intentResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickorder_intent_resolved_total",
			Help: "Resolved quantity intents, by action and outcome.",
		},
		[]string{"action", "outcome"}, // outcome: exact | adjusted | rejected
	)

	snapshotRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickorder_snapshot_refresh_total",
			Help: "Snapshot refreshes from upstream collaborators, by source and status.",
		},
		[]string{"source", "status"},
	)
)

func init() {
	prometheus.MustRegister(gridRebuildTotal, gridRebuildSeconds, intentResolvedTotal, snapshotRefreshTotal)
}

func intentOutcome(adjusted, rejected bool) string {
	switch {
	case rejected:
		return "rejected"
	case adjusted:
		return "adjusted"
	default:
		return "exact"
	}
}

func (s *QuickOrderService) countRefresh(source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	snapshotRefreshTotal.WithLabelValues(source, status).Inc()
}
