package metrics

import "github.com/prometheus/client_golang/prometheus"

type FeedMetrics struct {
	RunsObserved     prometheus.Counter
	DecodeErrors     prometheus.Counter
	Reconnects       prometheus.Counter
	DispatchDuration prometheus.Histogram
}

func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	m := &FeedMetrics{
		RunsObserved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "runs_observed_total",
			Help:      "Run insert notifications received from the database.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "decode_errors_total",
			Help:      "Notifications whose payload could not be decoded.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Times the listener connection was re-established.",
		}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent fanning out one observed run.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
	}

	reg.MustRegister(m.RunsObserved, m.DecodeErrors, m.Reconnects, m.DispatchDuration)
	return m
}
