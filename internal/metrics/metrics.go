package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the conversion engine.
type Metrics struct {
	// Provider fetch metrics
	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Snapshot cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Conversion metrics
	ConversionsTotal   *prometheus.CounterVec
	FallbackRatesTotal prometheus.Counter
	NegligibleTotal    prometheus.Counter

	// Metadata metrics
	MetadataLoadsTotal *prometheus.CounterVec
}

// New creates and registers all metrics on reg. Passing a fresh registry
// keeps tests independent of the default one.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "converta"
	}
	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Total number of provider fetches",
			},
			[]string{"endpoint", "status"},
		),

		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of provider fetches in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of snapshot cache hits",
			},
			[]string{"snapshot_kind"}, // "latest", "historical" or "crypto"
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of snapshot cache misses",
			},
			[]string{"snapshot_kind"},
		),

		ConversionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Total number of conversions performed",
			},
			[]string{"base"},
		),

		FallbackRatesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallback_rates_total",
				Help:      "Conversions that used the 1.0 fallback for a missing rate",
			},
		),

		NegligibleTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "negligible_results_total",
				Help:      "Converted amounts that rounded below the negligible threshold",
			},
		),

		MetadataLoadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metadata_loads_total",
				Help:      "Total number of metadata load attempts",
			},
			[]string{"status"},
		),
	}
}

// RecordFetch records a provider fetch.
func (m *Metrics) RecordFetch(endpoint, status string, durationSeconds float64) {
	m.FetchesTotal.WithLabelValues(endpoint, status).Inc()
	m.FetchDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordCacheHit records a snapshot cache hit.
func (m *Metrics) RecordCacheHit(kind string) {
	m.CacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a snapshot cache miss.
func (m *Metrics) RecordCacheMiss(kind string) {
	m.CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordConversion records one conversion and its fallback/negligible
// entry counts.
func (m *Metrics) RecordConversion(base string, fallbackRates, negligible int) {
	m.ConversionsTotal.WithLabelValues(base).Inc()
	m.FallbackRatesTotal.Add(float64(fallbackRates))
	m.NegligibleTotal.Add(float64(negligible))
}

// RecordMetadataLoad records a metadata load attempt.
func (m *Metrics) RecordMetadataLoad(status string) {
	m.MetadataLoadsTotal.WithLabelValues(status).Inc()
}
