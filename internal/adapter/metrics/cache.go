package metrics

import "github.com/prometheus/client_golang/prometheus"

type CacheMetrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Invalidations prometheus.Counter
	Errors        *prometheus.CounterVec
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "count_cache",
			Name:      "hits_total",
			Help:      "Daily count lookups served from the cache.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "count_cache",
			Name:      "misses_total",
			Help:      "Daily count lookups that queried the database.",
		}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "count_cache",
			Name:      "invalidations_total",
			Help:      "Cache entries dropped after a run insert.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "count_cache",
			Name:      "errors_total",
			Help:      "Cache operations that failed, by operation.",
		}, []string{"op"}),
	}

	reg.MustRegister(m.Hits, m.Misses, m.Invalidations, m.Errors)
	return m
}
