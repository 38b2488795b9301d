package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grid_monitor"

// Metrics holds the Prometheus counters, histograms, and gauges for the grid monitor.
type Metrics struct {
	CoordinatorRunning prometheus.Gauge

	// Per-source polling metrics.
	Polls               *prometheus.CounterVec   // labels: source, outcome={success,transient_failure,permanent_failure}
	PollDuration        *prometheus.HistogramVec // labels: source
	ConsecutiveFailures *prometheus.GaugeVec     // labels: source
	LastSuccess         *prometheus.GaugeVec     // labels: source
	ParseRowErrors      *prometheus.CounterVec   // labels: source

	// Aggregated state.
	GridSeverity   prometheus.Gauge
	ForecastAlerts prometheus.Gauge

	// Snapshot publishing.
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CoordinatorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coordinator_running",
			Help:      "1 while the polling coordinator is active, 0 when shut down.",
		}),
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed poll cycles by source and outcome.",
		}, []string{"source", "outcome"}),
		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of one fetch-and-parse cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		ConsecutiveFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "consecutive_failures",
			Help:      "Failed polls since the last success, per source.",
		}, []string{"source"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful poll, per source.",
		}, []string{"source"}),
		ParseRowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_row_errors_total",
			Help:      "Malformed report rows skipped, per source.",
		}, []string{"source"}),
		GridSeverity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "grid_severity",
			Help:      "Current grid severity, 0 (normal) to 5 (emergency).",
		}),
		ForecastAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "forecast_alerts",
			Help:      "Alerts detected across the seven-day forecast window.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Snapshot updates written to the event sink.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Snapshot updates that could not be written to the event sink.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CoordinatorRunning,
		m.Polls,
		m.PollDuration,
		m.ConsecutiveFailures,
		m.LastSuccess,
		m.ParseRowErrors,
		m.GridSeverity,
		m.ForecastAlerts,
		m.SnapshotsPublished,
		m.PublishErrors,
	}
}
