// Package metrics exposes prometheus collectors for the coordination server.
// All methods are safe to call on a nil *Metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "voxroom"

// Metrics groups the server collectors.
type Metrics struct {
	connections     prometheus.Gauge
	sessions        prometheus.Gauge
	roomJoins       prometheus.Counter
	chatMessages    prometheus.Counter
	relayed         *prometheus.CounterVec
	relayDropped    *prometheus.CounterVec
	moderation      *prometheus.CounterVec
	controlSessions prometheus.Gauge
	slowConsumers   prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Live client connections.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Connections with an established session.",
		}),
		roomJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_joins_total",
			Help:      "Successful room transitions.",
		}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages broadcast to rooms.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_forwarded_total",
			Help:      "Relayed payloads delivered to a live target.",
		}, []string{"kind"}),
		relayDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_dropped_total",
			Help:      "Relayed payloads dropped because the target was gone or not allowed.",
		}, []string{"kind"}),
		moderation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_actions_total",
			Help:      "Applied moderation actions.",
		}, []string{"action"}),
		controlSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remote_control_sessions",
			Help:      "Active remote-control sessions.",
		}),
		slowConsumers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_consumers_total",
			Help:      "Connections closed because their outbound queue overflowed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.connections,
			m.sessions,
			m.roomJoins,
			m.chatMessages,
			m.relayed,
			m.relayDropped,
			m.moderation,
			m.controlSessions,
			m.slowConsumers,
		)
	}
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) SessionStarted() {
	if m != nil {
		m.sessions.Inc()
	}
}

func (m *Metrics) SessionEnded() {
	if m != nil {
		m.sessions.Dec()
	}
}

func (m *Metrics) RoomJoined() {
	if m != nil {
		m.roomJoins.Inc()
	}
}

func (m *Metrics) ChatMessage() {
	if m != nil {
		m.chatMessages.Inc()
	}
}

func (m *Metrics) Relayed(kind string) {
	if m != nil {
		m.relayed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) RelayDropped(kind string) {
	if m != nil {
		m.relayDropped.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Moderation(action string) {
	if m != nil {
		m.moderation.WithLabelValues(action).Inc()
	}
}

func (m *Metrics) SetControlSessions(n int) {
	if m != nil {
		m.controlSessions.Set(float64(n))
	}
}

func (m *Metrics) SlowConsumer() {
	if m != nil {
		m.slowConsumers.Inc()
	}
}
