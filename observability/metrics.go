package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline.
type Metrics struct {
	Refreshes    *prometheus.CounterVec   // labels: dataset, outcome={assembled,degraded,stub,failed}
	Warnings     *prometheus.CounterVec   // labels: dataset
	Records      *prometheus.GaugeVec     // labels: dataset
	FetchSeconds *prometheus.HistogramVec // labels: dataset

	CacheReads *prometheus.CounterVec // labels: dataset, result={hit,miss,error}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Refreshes,
		m.Warnings,
		m.Records,
		m.FetchSeconds,
		m.CacheReads,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldmonitor",
			Name:      "refreshes_total",
			Help:      "Dataset refreshes by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldmonitor",
			Name:      "warnings_total",
			Help:      "Provenance warnings accumulated during refreshes.",
		}, []string{"dataset"}),
		Records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "worldmonitor",
			Name:      "records",
			Help:      "Record count produced by the most recent refresh.",
		}, []string{"dataset"}),
		FetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "worldmonitor",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a complete dataset refresh.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"dataset"}),
		CacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "worldmonitor",
			Name:      "cache_reads_total",
			Help:      "Cache read attempts by dataset and result.",
		}, []string{"dataset", "result"}),
	}
}
