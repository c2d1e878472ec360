package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rollcall"

var (
	reconciliations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "reconcile_duration_seconds",
		Help:      "Time spent reconciling a roster against check-ins.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
	rosterSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "roster_size",
		Help:      "Attendees in the most recently reconciled roster.",
	})
	checkIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkins_total",
		Help:      "Check-in requests by result.",
	}, []string{"result"})
	classified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkins_classified_total",
		Help:      "Check-ins classified by the worker, by status.",
	}, []string{"status"})
	exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "report_exports_total",
		Help:      "Attendance reports downloaded, by format.",
	}, []string{"format"})
)

// ObserveReconcile records one reconciliation pass.
func ObserveReconcile(started time.Time, roster int) {
	reconciliations.Observe(time.Since(started).Seconds())
	rosterSize.Set(float64(roster))
}

// CheckIn counts a check-in attempt ("accepted", "duplicate", "unknown", "error").
func CheckIn(result string) {
	checkIns.WithLabelValues(result).Inc()
}

// Classified counts a check-in status seen by the worker.
func Classified(status string) {
	classified.WithLabelValues(status).Inc()
}

// Export counts a report download.
func Export(format string) {
	exports.WithLabelValues(format).Inc()
}
