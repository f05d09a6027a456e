// Package metrics defines the Prometheus collectors for every subsystem.
// Each constructor registers on the registerer it is given so tests can use a
// fresh registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hamcounter"

// NewRegistry creates a registry preloaded with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Set bundles the collectors the server wires into its components.
type Set struct {
	HTTP     *HTTPMetrics
	Realtime *RealtimeMetrics
	Feed     *FeedMetrics
	Alert    *AlertMetrics
	Cache    *CacheMetrics
	DB       *DBMetrics
	Redis    *RedisMetrics
}

func NewSet(reg prometheus.Registerer) *Set {
	return &Set{
		HTTP:     NewHTTPMetrics(reg),
		Realtime: NewRealtimeMetrics(reg),
		Feed:     NewFeedMetrics(reg),
		Alert:    NewAlertMetrics(reg),
		Cache:    NewCacheMetrics(reg),
		DB:       NewDBMetrics(reg),
		Redis:    NewRedisMetrics(reg),
	}
}
