// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Connection status and reconnect attempts
//   - Event throughput by event name (received and sent)
//   - Dropped emits while disconnected
//   - Authentication expiries
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionStatus       = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "nexus_connection_status", Help: "Connection status (1 for the current state, 0 otherwise)"}, []string{"status"})
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "nexus_reconnect_attempts_total", Help: "Reconnect attempts scheduled"})
	EventsReceivedTotal    = promauto.NewCounterVec(prometheus.CounterOpts{Name: "nexus_events_received_total", Help: "Inbound events by name"}, []string{"event"})
	EventsSentTotal        = promauto.NewCounterVec(prometheus.CounterOpts{Name: "nexus_events_sent_total", Help: "Outbound events by name"}, []string{"event"})
	DroppedEmitsTotal      = promauto.NewCounter(prometheus.CounterOpts{Name: "nexus_dropped_emits_total", Help: "Emits dropped because the connection was down"})
	AuthExpiriesTotal      = promauto.NewCounter(prometheus.CounterOpts{Name: "nexus_auth_expiries_total", Help: "Server-signaled authentication expiries"})
)

// SetConnectionStatus records a status transition on the status gauge.
func SetConnectionStatus(prev, cur string) {
	if prev != "" && prev != cur {
		ConnectionStatus.WithLabelValues(prev).Set(0)
	}
	ConnectionStatus.WithLabelValues(cur).Set(1)
}
