package incidents

import (
	"time"

	"github.com/bissquit/risk-ledger/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	incidentsRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "incidents",
			Name:      "registered",
			Help:      "Number of incidents in the register",
		},
	)

	incidentsCostTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "incidents",
			Name:      "cost_total",
			Help:      "Summed cost of all registered incidents",
		},
	)

	validationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "incidents",
			Name:      "validation_failures_total",
			Help:      "Rejected draft fields by field name",
		},
		[]string{"field"},
	)

	dashboardBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "dashboard",
			Name:      "build_duration_seconds",
			Help:      "Time to compute the dashboard from a register snapshot",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)
)

// recordRegister updates the register gauges.
func recordRegister(count int, cost float64) {
	incidentsRegistered.Set(float64(count))
	incidentsCostTotal.Set(cost)
}

// recordValidationFailures counts each rejected field.
func recordValidationFailures(errs FieldErrors) {
	for field := range errs {
		validationFailures.WithLabelValues(field).Inc()
	}
}

func recordDashboardDuration(d time.Duration) {
	dashboardBuildDuration.Observe(d.Seconds())
}
