// Package metrics exposes Prometheus collectors for the semantic service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "semvec"

// Metrics groups the service collectors.
type Metrics struct {
	atomsWritten      *prometheus.CounterVec
	atomsRemoved      *prometheus.CounterVec
	searchDuration    prometheus.Histogram
	indexSize         *prometheus.GaugeVec
	desync            *prometheus.CounterVec
	rehydrateDuration prometheus.Histogram
}

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		atomsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "atoms_written_total",
			Help:      "Atoms written, by domain.",
		}, []string{"domain"}),
		atomsRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "atoms_removed_total",
			Help:      "Atoms removed, by domain.",
		}, []string{"domain"}),
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Vector search latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		indexSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_size",
			Help:      "Vectors held in the in-memory index, by domain.",
		}, []string{"domain"}),
		desync: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "desync_total",
			Help:      "Detected row/index count mismatches, by domain.",
		}, []string{"domain"}),
		rehydrateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rehydrate_duration_seconds",
			Help:      "Full index rebuild latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// AtomsWritten counts n atoms written to domain.
func (m *Metrics) AtomsWritten(domain string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.atomsWritten.WithLabelValues(domain).Add(float64(n))
}

// AtomsRemoved counts n atoms removed from domain.
func (m *Metrics) AtomsRemoved(domain string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.atomsRemoved.WithLabelValues(domain).Add(float64(n))
}

// ObserveSearch records a search that started at start.
func (m *Metrics) ObserveSearch(start time.Time) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(time.Since(start).Seconds())
}

// SetIndexSize records the index size of domain.
func (m *Metrics) SetIndexSize(domain string, n int) {
	if m == nil {
		return
	}
	m.indexSize.WithLabelValues(domain).Set(float64(n))
}

// Desync counts a detected mismatch in domain.
func (m *Metrics) Desync(domain string) {
	if m == nil {
		return
	}
	m.desync.WithLabelValues(domain).Inc()
}

// ObserveRehydrate records a rebuild that started at start.
func (m *Metrics) ObserveRehydrate(start time.Time) {
	if m == nil {
		return
	}
	m.rehydrateDuration.Observe(time.Since(start).Seconds())
}
