// Package broker carries telemetry in and device commands out over MQTT.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"barn_climate/internal/apperr"
	"barn_climate/internal/logger"
	"barn_climate/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	disconnectQuiesceMs  = 250
	defaultRetryInterval = 500 * time.Millisecond
	defaultMaxElapsed    = 30 * time.Second
)

var errConnectTimeout = errors.New("connect timed out")

// Config describes how to reach the broker.
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	ClientIDPrefix string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	ConnectRetries int
	RetryInterval  time.Duration
	MaxElapsed     time.Duration
}

// Session is the part of the connection the subscriber and publisher rely on.
type Session interface {
	IsConnected() bool
	Client() mqtt.Client
	OnConnect(hook func(mqtt.Client))
}

// ConnManager owns the single MQTT client of the process.
type ConnManager struct {
	cfg      Config
	clientID string
	client   mqtt.Client
	log      *logger.Logger
	metrics  *metrics.Metrics

	mu    sync.Mutex
	hooks []func(mqtt.Client)

	closeOnce sync.Once
}

// NewConnManager builds the client. Nothing is dialed until Connect.
func NewConnManager(cfg Config, log *logger.Logger, m *metrics.Metrics) *ConnManager {
	return newConnManager(cfg, log, m, mqtt.NewClient)
}

func newConnManager(cfg Config, log *logger.Logger, m *metrics.Metrics, newClient func(*mqtt.ClientOptions) mqtt.Client) *ConnManager {
	cm := &ConnManager{
		cfg:      cfg,
		clientID: fmt.Sprintf("%s-%s", cfg.ClientIDPrefix, uuid.NewString()[:8]),
		log:      logger.OrNop(log),
		metrics:  m,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cm.BrokerURL()).
		SetClientID(cm.clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectionLostHandler(cm.onConnectionLost).
		SetOnConnectHandler(cm.onConnect)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.KeepAlive > 0 {
		opts.SetKeepAlive(cfg.KeepAlive)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	cm.client = newClient(opts)
	return cm
}

// BrokerURL is the tcp:// address of the broker.
func (m *ConnManager) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", m.cfg.Host, m.cfg.Port)
}

func (m *ConnManager) ClientID() string { return m.clientID }

// Client exposes the underlying paho client. It is safe for concurrent use.
func (m *ConnManager) Client() mqtt.Client { return m.client }

// IsConnected reports whether the link is up right now. A client that is
// reconnecting counts as disconnected.
func (m *ConnManager) IsConnected() bool {
	return m.client.IsConnectionOpen()
}

// OnConnect registers a hook run after every successful connect and reconnect.
func (m *ConnManager) OnConnect(hook func(mqtt.Client)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Connect ensures the client is connected. It returns immediately when the
// link is already up and otherwise retries with exponential backoff.
func (m *ConnManager) Connect(ctx context.Context) error {
	if m.IsConnected() {
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = durationOr(m.cfg.RetryInterval, defaultRetryInterval)
	bo.MaxElapsedTime = durationOr(m.cfg.MaxElapsed, defaultMaxElapsed)
	retries := m.cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := m.dial()
		if err != nil {
			m.log.Warnw("mqtt_connect_failed", "broker", m.BrokerURL(), "attempt", attempt, "err", err)
		}
		return err
	}, policy)
	if err != nil {
		return apperr.Wrap(apperr.KindConnection, "broker.connect", err)
	}

	m.log.Infow("mqtt_connected", "broker", m.BrokerURL(), "client_id", m.clientID)
	return nil
}

func (m *ConnManager) dial() error {
	tok := m.client.Connect()
	timeout := durationOr(m.cfg.ConnectTimeout, 10*time.Second)
	if !tok.WaitTimeout(timeout) {
		return errConnectTimeout
	}
	return tok.Error()
}

// Close disconnects from the broker. Calling it more than once is a no-op.
func (m *ConnManager) Close() {
	m.closeOnce.Do(func() {
		if m.client.IsConnected() {
			m.client.Disconnect(disconnectQuiesceMs)
		}
		m.metrics.SetBrokerConnected(false)
		m.log.Infow("mqtt_disconnected", "broker", m.BrokerURL())
	})
}

func (m *ConnManager) onConnect(c mqtt.Client) {
	m.metrics.SetBrokerConnected(true)

	m.mu.Lock()
	hooks := make([]func(mqtt.Client), len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	for _, h := range hooks {
		h(c)
	}
}

func (m *ConnManager) onConnectionLost(_ mqtt.Client, err error) {
	m.metrics.SetBrokerConnected(false)
	m.log.Errorw("mqtt_connection_lost", "broker", m.BrokerURL(), "err", err)
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
