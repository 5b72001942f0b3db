// Package metrics provides observability for the indexing pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the indexer. Every method is safe
// on a nil receiver so components can run unmetered in tests.
type Metrics struct {
	PagesFetched     *prometheus.CounterVec
	NamesEnumerated  *prometheus.CounterVec
	ProfilesResolved prometheus.Counter
	LookupErrors     prometheus.Counter
	CacheHits        prometheus.Counter
	RecordsPersisted *prometheus.CounterVec
	CacheSize        *prometheus.GaugeVec
	LookupDuration   prometheus.Histogram
}

// New creates a Metrics instance with all pipeline metrics registered on the
// default registry.
func New() *Metrics {
	return &Metrics{
		PagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "search_indexer_pages_fetched_total",
			Help: "Total number of directory listing pages fetched",
		}, []string{"kind"}),
		NamesEnumerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "search_indexer_names_enumerated_total",
			Help: "Total number of names collected from directory listings",
		}, []string{"kind"}),
		ProfilesResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "search_indexer_profiles_resolved_total",
			Help: "Total number of successful profile lookups",
		}),
		LookupErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "search_indexer_lookup_errors_total",
			Help: "Total number of failed or timed-out profile lookups",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "search_indexer_profile_cache_hits_total",
			Help: "Total number of profile lookups served from the cache",
		}),
		RecordsPersisted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "search_indexer_records_persisted_total",
			Help: "Total number of records written to the document store",
		}, []string{"collection"}),
		CacheSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "search_indexer_cache_size",
			Help: "Number of entries in each persisted cache document",
		}, []string{"cache"}),
		LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_indexer_lookup_duration_seconds",
			Help:    "Duration of individual profile lookups",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObservePage records one fetched listing page and the names it carried.
func (m *Metrics) ObservePage(kind string, names int) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(kind).Inc()
	m.NamesEnumerated.WithLabelValues(kind).Add(float64(names))
}

// IncrementResolved records a successful profile lookup.
func (m *Metrics) IncrementResolved() {
	if m == nil {
		return
	}
	m.ProfilesResolved.Inc()
}

// IncrementLookupError records a failed or timed-out profile lookup.
func (m *Metrics) IncrementLookupError() {
	if m == nil {
		return
	}
	m.LookupErrors.Inc()
}

// IncrementCacheHit records a lookup served from the profile cache.
func (m *Metrics) IncrementCacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// IncrementPersisted records one record written to the named collection.
func (m *Metrics) IncrementPersisted(collection string) {
	if m == nil {
		return
	}
	m.RecordsPersisted.WithLabelValues(collection).Inc()
}

// SetCacheSize records the entry count of a persisted cache document.
func (m *Metrics) SetCacheSize(cache string, size int) {
	if m == nil {
		return
	}
	m.CacheSize.WithLabelValues(cache).Set(float64(size))
}

// ObserveLookup records the duration of a profile lookup. Call with
// time.Now() captured at the start of the lookup.
func (m *Metrics) ObserveLookup(start time.Time) {
	if m == nil {
		return
	}
	m.LookupDuration.Observe(time.Since(start).Seconds())
}
