package metrics

import "github.com/prometheus/client_golang/prometheus"

type AlertMetrics struct {
	Evaluations *prometheus.CounterVec
	Sent        prometheus.Counter
	Failed      prometheus.Counter
}

func NewAlertMetrics(reg prometheus.Registerer) *AlertMetrics {
	m := &AlertMetrics{
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "evaluations_total",
			Help:      "Inactivity checks run per insert, by outcome.",
		}, []string{"outcome"}),
		Sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "sent_total",
			Help:      "Alerts delivered to the messaging provider.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "failed_total",
			Help:      "Alerts the messaging provider did not accept.",
		}),
	}

	reg.MustRegister(m.Evaluations, m.Sent, m.Failed)
	return m
}
