// Package metrics exposes Prometheus metrics for the routing engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leadwerk"

// Metrics holds every collector the engine reports.
type Metrics struct {
	// Assignment outcomes by mode (auto, manual, admin) and result
	// (assigned, ineligible, no_candidate, error).
	Assignments *prometheus.CounterVec

	// Candidate evaluation timings for a full ranking pass.
	SelectionDuration prometheus.Histogram

	// Eligibility gate rejections by reason.
	EligibilityRejections *prometheus.CounterVec

	// Payments recorded at accept time, by method.
	Payments *prometheus.CounterVec

	// Leads swept by the backup assignment job.
	SweepAssigned prometheus.Counter

	// HTTP traffic.
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on the given registerer and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Assignments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "assignments_total",
			Help:      "Assignment attempts by mode and outcome.",
		}, []string{"mode", "outcome"}),

		SelectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "selection_duration_seconds",
			Help:      "Time spent scoring and ranking candidates for one lead.",
			Buckets:   prometheus.DefBuckets,
		}),

		EligibilityRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "eligibility_rejections_total",
			Help:      "Eligibility gate rejections by reason.",
		}, []string{"reason"}),

		Payments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "payments_total",
			Help:      "Payments recorded at lead acceptance, by method.",
		}, []string{"method"}),

		SweepAssigned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "sweep_assigned_total",
			Help:      "Leads assigned by the periodic backup sweep.",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveSelection records one ranking pass duration.
func (m *Metrics) ObserveSelection(start time.Time) {
	m.SelectionDuration.Observe(time.Since(start).Seconds())
}
