package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"barn_climate/internal/logger"
	"barn_climate/internal/metrics"
	"barn_climate/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	subscribeTimeout = 5 * time.Second
	defaultQueueSize = 64
	maxLoggedPayload = 256
)

// ErrAlreadyRunning is returned by Run when the subscriber loop is already active.
var ErrAlreadyRunning = errors.New("telemetry subscriber already running")

// SnapshotHandler processes one decoded reading. It runs on the subscriber
// goroutine, one reading at a time.
type SnapshotHandler func(ctx context.Context, snap models.SensorSnapshot)

// TelemetrySubscriber receives readings from the telemetry topic and feeds
// them, in arrival order, to the handler.
type TelemetrySubscriber struct {
	session Session
	topic   string
	qos     byte
	handler SnapshotHandler
	log     *logger.Logger
	metrics *metrics.Metrics

	queue    chan []byte
	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// NewTelemetrySubscriber registers a subscription hook on the session, so the
// subscriber must be created before the session connects.
func NewTelemetrySubscriber(session Session, topic string, qos byte, queueSize int, handler SnapshotHandler, log *logger.Logger, m *metrics.Metrics) *TelemetrySubscriber {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	s := &TelemetrySubscriber{
		session: session,
		topic:   topic,
		qos:     qos,
		handler: handler,
		log:     logger.OrNop(log),
		metrics: m,
		queue:   make(chan []byte, queueSize),
		stop:    make(chan struct{}),
	}
	session.OnConnect(s.subscribe)
	return s
}

func (s *TelemetrySubscriber) subscribe(c mqtt.Client) {
	tok := c.Subscribe(s.topic, s.qos, s.onMessage)
	if !tok.WaitTimeout(subscribeTimeout) {
		s.log.Errorw("mqtt_subscribe_timeout", "topic", s.topic)
		return
	}
	if err := tok.Error(); err != nil {
		s.log.Errorw("mqtt_subscribe_failed", "topic", s.topic, "err", err)
		return
	}
	s.log.Infow("mqtt_subscribed", "topic", s.topic, "qos", s.qos)
}

// onMessage runs on the paho router, which also handles acks and pings, so it
// never blocks. A reading that finds the queue full is counted and dropped;
// accepted readings keep their arrival order.
func (s *TelemetrySubscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	select {
	case <-s.stop:
		s.log.Warnw("telemetry_dropped_on_shutdown", "topic", msg.Topic())
	case s.queue <- payload:
	default:
		s.metrics.QueueOverflowed()
		s.log.Warnw("telemetry_dropped_queue_full", "topic", msg.Topic(), "queue_size", cap(s.queue))
	}
}

// Run drains the queue until ctx is cancelled, then unsubscribes.
func (s *TelemetrySubscriber) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-s.queue:
			s.HandlePayload(ctx, payload)
		}
	}
}

func (s *TelemetrySubscriber) shutdown() {
	s.stopOnce.Do(func() { close(s.stop) })

	if !s.session.IsConnected() {
		return
	}
	tok := s.session.Client().Unsubscribe(s.topic)
	if !tok.WaitTimeout(subscribeTimeout) {
		s.log.Warnw("mqtt_unsubscribe_timeout", "topic", s.topic)
		return
	}
	if err := tok.Error(); err != nil {
		s.log.Warnw("mqtt_unsubscribe_failed", "topic", s.topic, "err", err)
	}
}

// HandlePayload decodes one payload and passes it to the handler. Undecodable
// payloads are logged and dropped. A panicking handler does not stop the loop.
func (s *TelemetrySubscriber) HandlePayload(ctx context.Context, payload []byte) {
	traceID := uuid.NewString()[:8]
	s.metrics.TelemetryReceived()

	snap, err := DecodeSnapshot(payload)
	if err != nil {
		s.metrics.DecodeFailed()
		s.log.Warnw("telemetry_decode_failed",
			"trace_id", traceID, "topic", s.topic, "payload", clip(payload), "err", err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("telemetry_handler_panic", "trace_id", traceID, "panic", r)
		}
	}()

	start := time.Now()
	s.handler(ctx, snap)
	s.metrics.ObserveIngest(time.Since(start))
	s.log.Debugw("telemetry_processed", "trace_id", traceID, "took", time.Since(start))
}

func clip(b []byte) string {
	if len(b) > maxLoggedPayload {
		return string(b[:maxLoggedPayload]) + "..."
	}
	return string(b)
}
