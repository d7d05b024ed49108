package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "synthlog"

// Result labels.
const (
	ResultOK           = "ok"
	ResultNotPersisted = "not_persisted"
	ResultNotFound     = "not_found"
	ResultInvalid      = "invalid"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	// Store operations
	AppendsTotal   *prometheus.CounterVec
	UpdatesTotal   *prometheus.CounterVec
	PageReadsTotal prometheus.Counter
	ClearsTotal    prometheus.Counter
	RepairsTotal   *prometheus.CounterVec
	DegradedReads  *prometheus.CounterVec
	OpDuration     *prometheus.HistogramVec

	// Pebble
	StorageWriteDuration prometheus.Histogram
	StorageWriteBytes    prometheus.Counter
	StorageReadDuration  prometheus.Histogram
	StorageReadBytes     prometheus.Counter
	BatchCommitDuration  prometheus.Histogram
	BatchOps             prometheus.Counter
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		AppendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "appends_total",
				Help:      "Total number of append attempts by result",
			},
			[]string{"result"},
		),
		UpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_total",
				Help:      "Total number of update attempts by result",
			},
			[]string{"result"},
		),
		PageReadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "page_reads_total",
				Help:      "Total number of page reads",
			},
		),
		ClearsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_clears_total",
				Help:      "Total number of cleared sessions",
			},
		),
		RepairsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "repairs_total",
				Help:      "Total number of repair passes by whether the index changed",
			},
			[]string{"changed"},
		),
		DegradedReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degraded_reads_total",
				Help:      "Missing or undecodable data encountered while reading",
			},
			[]string{"reason"},
		),
		OpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "op_duration_seconds",
				Help:      "Duration of session operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"op"},
		),

		StorageWriteDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pebble",
				Name:      "write_duration_seconds",
				Help:      "Duration of single-key Pebble writes",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
			},
		),
		StorageWriteBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pebble",
				Name:      "write_bytes_total",
				Help:      "Bytes written through single-key Pebble writes",
			},
		),
		StorageReadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pebble",
				Name:      "read_duration_seconds",
				Help:      "Duration of Pebble point reads",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
		StorageReadBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pebble",
				Name:      "read_bytes_total",
				Help:      "Bytes returned by Pebble point reads",
			},
		),
		BatchCommitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pebble",
				Name:      "batch_commit_duration_seconds",
				Help:      "Duration of Pebble batch commits",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
			},
		),
		BatchOps: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pebble",
				Name:      "batch_ops_total",
				Help:      "Mutations committed through Pebble batches",
			},
		),
	}

	m.registerMetrics()

	return m
}

func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.registry.MustRegister(m.AppendsTotal)
	m.registry.MustRegister(m.UpdatesTotal)
	m.registry.MustRegister(m.PageReadsTotal)
	m.registry.MustRegister(m.ClearsTotal)
	m.registry.MustRegister(m.RepairsTotal)
	m.registry.MustRegister(m.DegradedReads)
	m.registry.MustRegister(m.OpDuration)

	m.registry.MustRegister(m.StorageWriteDuration)
	m.registry.MustRegister(m.StorageWriteBytes)
	m.registry.MustRegister(m.StorageReadDuration)
	m.registry.MustRegister(m.StorageReadBytes)
	m.registry.MustRegister(m.BatchCommitDuration)
	m.registry.MustRegister(m.BatchOps)
}

// ObserveOp records the duration of a session operation.
func (m *Metrics) ObserveOp(op string, elapsed time.Duration) {
	m.OpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveDegradedRead implements logstore.MetricsHook.
func (m *Metrics) ObserveDegradedRead(reason string) {
	m.DegradedReads.WithLabelValues(reason).Inc()
}

// ObserveWrite implements pebblestore.MetricsHook.
func (m *Metrics) ObserveWrite(elapsed time.Duration, bytes int) {
	m.StorageWriteDuration.Observe(elapsed.Seconds())
	m.StorageWriteBytes.Add(float64(bytes))
}

// ObserveRead implements pebblestore.MetricsHook.
func (m *Metrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.StorageReadDuration.Observe(elapsed.Seconds())
	m.StorageReadBytes.Add(float64(bytes))
}

// ObserveBatchCommit implements pebblestore.MetricsHook.
func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, ops int, _ int) {
	m.BatchCommitDuration.Observe(elapsed.Seconds())
	m.BatchOps.Add(float64(ops))
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
