// Package scanmetrics instruments the scan engine's lifecycle with
// Prometheus metrics, promauto-registering vectors on a private registry.
package scanmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the scan engine's metrics.
type Registry struct {
	registry *prometheus.Registry

	FetchesTotal         *prometheus.CounterVec
	FetchDuration        prometheus.Histogram
	DrainedRetriesTotal  prometheus.Counter
	ValuesDeliveredTotal prometheus.Counter
	ScansActive          prometheus.Gauge
	BufferPoolOccupancy  prometheus.Gauge
	BlockReadsTotal       *prometheus.CounterVec
	BlockReadDuration     *prometheus.HistogramVec
}

// NewRegistry builds a fresh, independently-registered Registry.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.FetchesTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangescan_fetches_total",
			Help: "Total number of Scan.Fetch calls, by outcome (value, end, error).",
		},
		[]string{"outcome"},
	)

	r.FetchDuration = promauto.With(reg).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rangescan_fetch_duration_seconds",
			Help:    "Wall time from Fetch call to its callback firing.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	r.DrainedRetriesTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "rangescan_drained_retries_total",
			Help: "Total number of times a merge pop returned Again and Fetch re-entered.",
		},
	)

	r.ValuesDeliveredTotal = promauto.With(reg).NewCounter(
		prometheus.CounterOpts{
			Name: "rangescan_values_delivered_total",
			Help: "Total number of values delivered across all scans.",
		},
	)

	r.ScansActive = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "rangescan_scans_active",
			Help: "Number of scans currently Seeking or Fetching.",
		},
	)

	r.BufferPoolOccupancy = promauto.With(reg).NewGauge(
		prometheus.GaugeOpts{
			Name: "rangescan_buffer_pool_occupancy",
			Help: "Number of ScanBuffer slots currently handed out by a ScanContext.",
		},
	)

	r.BlockReadsTotal = promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangescan_block_reads_total",
			Help: "Total number of grid block reads, by kind and status.",
		},
		[]string{"kind", "status"},
	)

	r.BlockReadDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rangescan_block_read_duration_seconds",
			Help:    "Block read latency, by kind.",
			Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"kind"},
	)

	return r
}

// Gatherer exposes the underlying registry for an HTTP /metrics handler.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.registry }

// RecordFetch records one completed Fetch call.
func (r *Registry) RecordFetch(outcome string, duration time.Duration) {
	r.FetchesTotal.WithLabelValues(outcome).Inc()
	r.FetchDuration.Observe(duration.Seconds())
	if outcome == "value" {
		r.ValuesDeliveredTotal.Inc()
	}
}

// RecordDrainedRetry records one Again->re-Fetch cycle. Neither Scan nor
// Session calls it, so DrainedRetriesTotal stays at zero unless a caller
// records retries itself.
func (r *Registry) RecordDrainedRetry() {
	r.DrainedRetriesTotal.Inc()
}

// RecordBlockRead records one grid block read.
func (r *Registry) RecordBlockRead(kind string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.BlockReadsTotal.WithLabelValues(kind, status).Inc()
	r.BlockReadDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetScansActive sets the current in-flight scan count.
func (r *Registry) SetScansActive(n int) { r.ScansActive.Set(float64(n)) }

// SetBufferPoolOccupancy sets the current ScanContext buffer usage.
func (r *Registry) SetBufferPoolOccupancy(used int) { r.BufferPoolOccupancy.Set(float64(used)) }
