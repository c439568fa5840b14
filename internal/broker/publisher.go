package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"barn_climate/internal/apperr"
	"barn_climate/internal/logger"
	"barn_climate/internal/metrics"
	"barn_climate/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const defaultPublishTimeout = 5 * time.Second

// ErrNotConnected is returned when a command is attempted while the broker
// link is down. Nothing is sent and nothing is queued.
var ErrNotConnected = apperr.New(apperr.KindConnection, "broker.publish", "broker not connected")

var errPublishTimeout = errors.New("publish timed out")

// CommandPublisher sends device commands to the command topic.
type CommandPublisher struct {
	session Session
	topic   string
	qos     byte
	timeout time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewCommandPublisher(session Session, topic string, qos byte, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *CommandPublisher {
	return &CommandPublisher{
		session: session,
		topic:   topic,
		qos:     qos,
		timeout: durationOr(timeout, defaultPublishTimeout),
		log:     logger.OrNop(log),
		metrics: m,
	}
}

// Publish sends {"action": "<name>"} once. Each call is independent.
func (p *CommandPublisher) Publish(ctx context.Context, action models.Action) error {
	const op = "broker.publish"

	if !action.Valid() {
		return apperr.New(apperr.KindValidation, op, fmt.Sprintf("unknown action %q", action))
	}

	if !p.session.IsConnected() {
		p.metrics.CommandPublished(action.String(), metrics.ResultNotConnected)
		p.log.Warnw("command_not_sent", "action", action, "reason", "broker not connected")
		return ErrNotConnected
	}

	body, err := json.Marshal(models.Command{Action: action})
	if err != nil {
		return apperr.Wrap(apperr.KindPublish, op, err)
	}

	tok := p.session.Client().Publish(p.topic, p.qos, false, body)
	if err := waitToken(ctx, tok, p.timeout); err != nil {
		p.metrics.CommandPublished(action.String(), metrics.ResultError)
		p.log.Errorw("command_publish_failed", "action", action, "topic", p.topic, "err", err)
		return apperr.Wrap(apperr.KindPublish, op, err)
	}

	p.metrics.CommandPublished(action.String(), metrics.ResultOK)
	p.log.Infow("command_published", "action", action, "topic", p.topic)
	return nil
}

func waitToken(ctx context.Context, tok mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-tok.Done():
		return tok.Error()
	case <-timer.C:
		return errPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
