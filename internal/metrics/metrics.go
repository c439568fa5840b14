// Package metrics holds the prometheus collectors of the ingest pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Publish outcomes used as the "result" label.
const (
	ResultOK           = "ok"
	ResultError        = "error"
	ResultNotConnected = "not_connected"
)

type Metrics struct {
	telemetryReceived prometheus.Counter
	decodeFailures    prometheus.Counter
	queueOverflows    prometheus.Counter
	ingestLatency     prometheus.Histogram
	persistenceErrors *prometheus.CounterVec
	commandsPublished *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	brokerConnected   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		telemetryReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "barn_telemetry_received_total",
			Help: "Telemetry messages received from the broker.",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "barn_telemetry_decode_failures_total",
			Help: "Telemetry messages dropped because the payload could not be decoded.",
		}),
		queueOverflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "barn_telemetry_queue_overflow_total",
			Help: "Telemetry messages dropped because the ingest queue was full.",
		}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "barn_ingest_duration_seconds",
			Help:    "Time spent handling one decoded snapshot (persist, evaluate, publish, alert).",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barn_persistence_failures_total",
			Help: "Failed storage operations by operation.",
		}, []string{"op"}),
		commandsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barn_commands_published_total",
			Help: "Command publish attempts by action and result.",
		}, []string{"action", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "barn_notifications_total",
			Help: "Alert notifications recorded by channel.",
		}, []string{"channel"}),
		brokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "barn_broker_connected",
			Help: "1 while the broker connection is up.",
		}),
	}

	reg.MustRegister(
		m.telemetryReceived,
		m.decodeFailures,
		m.queueOverflows,
		m.ingestLatency,
		m.persistenceErrors,
		m.commandsPublished,
		m.notifications,
		m.brokerConnected,
	)
	return m
}

func (m *Metrics) TelemetryReceived() {
	if m == nil {
		return
	}
	m.telemetryReceived.Inc()
}

func (m *Metrics) DecodeFailed() {
	if m == nil {
		return
	}
	m.decodeFailures.Inc()
}

func (m *Metrics) QueueOverflowed() {
	if m == nil {
		return
	}
	m.queueOverflows.Inc()
}

func (m *Metrics) ObserveIngest(d time.Duration) {
	if m == nil {
		return
	}
	m.ingestLatency.Observe(d.Seconds())
}

func (m *Metrics) PersistenceFailed(op string) {
	if m == nil {
		return
	}
	m.persistenceErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) CommandPublished(action, result string) {
	if m == nil {
		return
	}
	m.commandsPublished.WithLabelValues(action, result).Inc()
}

func (m *Metrics) NotificationRecorded(channel string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(channel).Inc()
}

func (m *Metrics) SetBrokerConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.brokerConnected.Set(1)
		return
	}
	m.brokerConnected.Set(0)
}
