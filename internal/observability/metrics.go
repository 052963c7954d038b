package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the reconciliation pipeline.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={published,gate_failed,error}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge

	// Record flow.
	RecordsNormalized *prometheus.CounterVec // labels: source={historical,realtime}
	RecordsRejected   *prometheus.CounterVec // labels: source={historical,realtime}
	AnomalyLabels     *prometheus.CounterVec // labels: label
	QualityFailures   *prometheus.CounterVec // labels: check
	RowsPublished     prometheus.Counter

	// Live reading fetches.
	RealtimeFetches     *prometheus.CounterVec // labels: outcome={success,error}
	RealtimeCache       *prometheus.CounterVec // labels: result={hit,miss}
	RealtimeAPIDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-reconcile-publish run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the scheduler is active, 0 when shut down.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run whose table passed the quality gate.",
		}),
		RecordsNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_normalized_total",
			Help:      "Records accepted by the normalizer by source.",
		}, []string{"source"}),
		RecordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_rejected_total",
			Help:      "Malformed records dropped by the normalizer by source.",
		}, []string{"source"}),
		AnomalyLabels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomaly_labels_total",
			Help:      "Classified records by anomaly label.",
		}, []string{"label"}),
		QualityFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_checks_failed_total",
			Help:      "Quality gate check failures by check name.",
		}, []string{"check"}),
		RowsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_published_total",
			Help:      "Wide rows handed to the output sinks.",
		}),
		RealtimeFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_fetch_total",
			Help:      "Live reading fetches by outcome.",
		}, []string{"outcome"}),
		RealtimeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_cache_total",
			Help:      "Live reading cache lookups by result.",
		}, []string{"result"}),
		RealtimeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "realtime_api_duration_seconds",
			Help:      "Open-Meteo API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.PipelineRunning,
		m.LastSuccess,
		m.RecordsNormalized,
		m.RecordsRejected,
		m.AnomalyLabels,
		m.QualityFailures,
		m.RowsPublished,
		m.RealtimeFetches,
		m.RealtimeCache,
		m.RealtimeAPIDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsTotal:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "runs_total"}, []string{"outcome"}),
		RunDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "run_duration_seconds"}),
		PipelineRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		LastSuccess:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "last_success_timestamp_seconds"}),
		RecordsNormalized:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "records_normalized_total"}, []string{"source"}),
		RecordsRejected:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "records_rejected_total"}, []string{"source"}),
		AnomalyLabels:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "anomaly_labels_total"}, []string{"label"}),
		QualityFailures:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "quality_checks_failed_total"}, []string{"check"}),
		RowsPublished:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rows_published_total"}),
		RealtimeFetches:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "realtime_fetch_total"}, []string{"outcome"}),
		RealtimeCache:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "realtime_cache_total"}, []string{"result"}),
		RealtimeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "realtime_api_duration_seconds"}),
	}
}
