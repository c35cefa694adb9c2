package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for retrievals
// and the batch job.
type Metrics struct {
	Retrievals        *prometheus.CounterVec   // labels: kind={surface,profile}, outcome={ok,timeout,external_failure,no_data,malformed,error}
	RetrievalDuration *prometheus.HistogramVec // labels: kind
	RowsRetrieved     *prometheus.CounterVec   // labels: kind

	RecordsPublished *prometheus.CounterVec // labels: sink={kafka,sqlite}
	JobRunning       prometheus.Gauge
	RequestsSkipped  *prometheus.CounterVec // labels: reason
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Retrievals,
		m.RetrievalDuration,
		m.RowsRetrieved,
		m.RecordsPublished,
		m.JobRunning,
		m.RequestsSkipped,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dwh_retrieval",
			Name:      "retrievals_total",
			Help:      "Retrieval tool invocations by query kind and outcome.",
		}, []string{"kind", "outcome"}),
		RetrievalDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dwh_retrieval",
			Name:      "retrieval_duration_seconds",
			Help:      "Wall-clock duration of one retrieval, including parsing.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		}, []string{"kind"}),
		RowsRetrieved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dwh_retrieval",
			Name:      "rows_retrieved_total",
			Help:      "Data rows returned by successful retrievals.",
		}, []string{"kind"}),
		RecordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dwh_retrieval",
			Name:      "records_published_total",
			Help:      "Observation records written to a sink.",
		}, []string{"sink"}),
		JobRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dwh_retrieval",
			Name:      "job_running",
			Help:      "1 while a batch job is running, 0 otherwise.",
		}),
		RequestsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dwh_retrieval",
			Name:      "requests_skipped_total",
			Help:      "Batch requests skipped after a failed retrieval, by error kind.",
		}, []string{"reason"}),
	}
}
