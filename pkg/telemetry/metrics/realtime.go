package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics tracks live sessions and outbound delivery.
//
// Metrics:
//   - pulse_sessions_active_connections: Open authenticated connections
//   - pulse_sessions_active_users: Users with at least one open connection
//   - pulse_delivery_messages_total: Outbound messages by kind
//   - pulse_delivery_failures_total: Messages dropped or failed on write
type RealtimeMetrics struct {
	connections prometheus.Gauge
	users       prometheus.Gauge
	delivered   *prometheus.CounterVec
	failures    prometheus.Counter
}

// NewRealtimeMetrics creates and registers session and delivery metrics.
func NewRealtimeMetrics(namespace string, registry *prometheus.Registry) *RealtimeMetrics {
	rm := &RealtimeMetrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active_connections",
			Help:      "Number of open authenticated connections",
		}),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active_users",
			Help:      "Number of users with at least one open connection",
		}),
		delivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delivery_messages_total",
				Help:      "Total outbound messages by kind",
			},
			[]string{"kind"},
		),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Outbound messages dropped or failed on write",
		}),
	}

	registry.MustRegister(rm.connections, rm.users, rm.delivered, rm.failures)
	return rm
}

// UpdateSessions sets both session gauges.
func (rm *RealtimeMetrics) UpdateSessions(connections, users int) {
	rm.connections.Set(float64(connections))
	rm.users.Set(float64(users))
}

// RecordDelivery increments the delivered counter for kind.
func (rm *RealtimeMetrics) RecordDelivery(kind string) {
	rm.delivered.WithLabelValues(kind).Inc()
}

// RecordFailure increments the failure counter.
func (rm *RealtimeMetrics) RecordFailure() {
	rm.failures.Inc()
}
