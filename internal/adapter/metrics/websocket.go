package metrics

import "github.com/prometheus/client_golang/prometheus"

// Message kinds sent to dashboard clients.
const (
	KindRun       = "run"
	KindHeartbeat = "heartbeat"
	KindEcho      = "echo"
)

type RealtimeMetrics struct {
	ActiveConnections prometheus.Gauge
	MessagesSent      *prometheus.CounterVec
	ClientsDropped    *prometheus.CounterVec
	ConnectionsDenied prometheus.Counter
}

func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	m := &RealtimeMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of connected dashboard clients.",
		}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_sent_total",
			Help:      "Messages queued to dashboard clients, by kind.",
		}, []string{"kind"}),
		ClientsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "clients_dropped_total",
			Help:      "Clients disconnected by the server, by reason.",
		}, []string{"reason"}),
		ConnectionsDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_denied_total",
			Help:      "Upgrades refused because the hub was full.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesSent, m.ClientsDropped, m.ConnectionsDenied)
	return m
}
