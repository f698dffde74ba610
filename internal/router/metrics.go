package router

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_sessions",
		Help: "Number of currently connected sessions",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_messages_total",
		Help: "Inbound frames processed by message type",
	}, []string{"type"})

	DispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_dispatch_seconds",
		Help:    "Time to dispatch each inbound frame",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	SendFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "relay_send_failures_total",
		Help: "Outbound frames dropped because a transport push failed",
	})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(SendFailuresTotal)
}
