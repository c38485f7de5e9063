package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry's Prometheus metrics.
type Metrics struct {
	ProfilesRegistered prometheus.Counter
	LookupDuration     *prometheus.HistogramVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
}

// New creates and registers all registry metrics.
func New() *Metrics {
	return &Metrics{
		ProfilesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facepay_profiles_registered_total",
			Help: "Total number of profiles registered",
		}),
		LookupDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "facepay_registry_lookup_duration_seconds",
			Help:    "Registry lookup latency by index",
			Buckets: prometheus.DefBuckets,
		}, []string{"index"}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facepay_registry_cache_hits_total",
			Help: "Fingerprint lookup cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facepay_registry_cache_misses_total",
			Help: "Fingerprint lookup cache misses",
		}),
	}
}

func (m *Metrics) IncrementProfilesRegistered() {
	m.ProfilesRegistered.Inc()
}

func (m *Metrics) ObserveLookupDuration(index string, seconds float64) {
	m.LookupDuration.WithLabelValues(index).Observe(seconds)
}

func (m *Metrics) RecordCacheHit()  { m.CacheHits.Inc() }
func (m *Metrics) RecordCacheMiss() { m.CacheMisses.Inc() }
