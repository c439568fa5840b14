package service

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"barn_climate/internal/apperr"
	"barn_climate/internal/logger"
	"barn_climate/internal/metrics"
	"barn_climate/internal/models"
	"barn_climate/internal/notifier"
	"barn_climate/internal/repository"
)

const alertSubject = "Barn climate alert"

var alertBody = template.Must(template.New("alert").Parse(`Alert from the barn climate controller:

Sensor data:
- Temperature: {{ printf "%.1f" .Snap.Temperature }} °C
- Humidity: {{ printf "%.1f" .Snap.Humidity }} %
- Ammonia: {{ printf "%.1f" .Snap.Ammonia }} ppm

Actions taken:
{{ range .Actions }}- {{ . }}
{{ end }}
Please check the barn.
`))

type AlertService struct {
	mailer    Mailer
	notes     repository.NotificationRepo
	recipient string
	timeout   time.Duration
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewAlertService builds the alerter. With a nil mailer alerts are only
// recorded on the system channel.
func NewAlertService(mailer Mailer, notes repository.NotificationRepo, recipient string, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *AlertService {
	if timeout <= 0 {
		timeout = defaultIOTimeout
	}
	return &AlertService{
		mailer:    mailer,
		notes:     notes,
		recipient: recipient,
		timeout:   timeout,
		log:       logger.OrNop(log),
		metrics:   m,
	}
}

// SendAlert e-mails the reading and the actions taken, then records the
// outcome in the notification log.
func (s *AlertService) SendAlert(ctx context.Context, snap models.SensorSnapshot, actions []models.Action) error {
	summary := models.JoinActions(actions)

	if s.mailer == nil {
		s.log.Infow("alert_email_skipped", "reason", "email not configured", "actions", summary)
		s.record(ctx, "Alert: "+summary, models.ChannelSystem)
		return nil
	}

	body, err := RenderAlertBody(snap, actions)
	if err == nil {
		sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err = s.mailer.Send(sendCtx, notifier.Message{To: s.recipient, Subject: alertSubject, Body: body})
		cancel()
	}
	if err != nil {
		s.record(ctx, "Alert failed: "+err.Error(), models.ChannelError)
		return apperr.Wrap(apperr.KindDelivery, "alert.send", err)
	}

	s.record(ctx, "Alert sent: "+summary, models.ChannelEmail)
	return nil
}

func (s *AlertService) record(ctx context.Context, msg string, via models.Channel) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.notes.Save(opCtx, msg, via); err != nil {
		s.metrics.PersistenceFailed("notification_save")
		s.log.Errorw("notification_save_failed", "channel", via, "err", err)
		return
	}
	s.metrics.NotificationRecorded(string(via))
}

// RenderAlertBody formats the plain-text alert e-mail.
func RenderAlertBody(snap models.SensorSnapshot, actions []models.Action) (string, error) {
	var buf bytes.Buffer
	err := alertBody.Execute(&buf, struct {
		Snap    models.SensorSnapshot
		Actions []models.Action
	}{snap, actions})
	if err != nil {
		return "", fmt.Errorf("render alert: %w", err)
	}
	return buf.String(), nil
}
