package service

import (
	"context"
	"time"

	"barn_climate/internal/logger"
	"barn_climate/internal/metrics"
	"barn_climate/internal/models"
	"barn_climate/internal/notifier"
	"barn_climate/internal/repository"
)

const defaultIOTimeout = 5 * time.Second

// Ingest runs the pipeline for one telemetry reading.
type Ingest interface {
	Handle(ctx context.Context, snap models.SensorSnapshot) IngestResult
}

// Alerting tells the operator which actions were taken.
type Alerting interface {
	SendAlert(ctx context.Context, snap models.SensorSnapshot, actions []models.Action) error
}

// DeviceControl lists and dispatches manual device commands.
type DeviceControl interface {
	Actions() []models.Action
	Execute(ctx context.Context, raw string) (models.Action, error)
}

// SensorQuery reads stored telemetry.
type SensorQuery interface {
	Latest(ctx context.Context) (models.SensorRecord, bool, error)
	History(ctx context.Context, limit int) ([]models.SensorRecord, error)
}

// NotificationLog reads the alert history.
type NotificationLog interface {
	List(ctx context.Context, limit int) ([]models.NotificationRecord, error)
}

// Health reports the state of the process dependencies.
type Health interface {
	Check(ctx context.Context) HealthStatus
}

// CommandPublisher sends one device command.
type CommandPublisher interface {
	Publish(ctx context.Context, action models.Action) error
}

// BrokerStatus reports whether the broker link is up.
type BrokerStatus interface {
	IsConnected() bool
}

// Mailer delivers one e-mail.
type Mailer interface {
	Send(ctx context.Context, msg notifier.Message) error
}

// Service aggregates everything the HTTP layer and the subscriber need.
type Service struct {
	Ingest
	Alerting
	DeviceControl
	SensorQuery
	NotificationLog
	Health

	Feed *LiveFeed
}

// Deps are the collaborators of the services. Mailer and Exporter may be
// nil: alerts are then only recorded and readings are not mirrored.
type Deps struct {
	Repos          *repository.Repository
	Publisher      CommandPublisher
	Broker         BrokerStatus
	Mailer         Mailer
	Exporter       repository.SensorExporter
	AlertRecipient string
	IOTimeout      time.Duration
	Metrics        *metrics.Metrics
	Log            *logger.Logger
}

func NewService(d Deps) *Service {
	if d.IOTimeout <= 0 {
		d.IOTimeout = defaultIOTimeout
	}
	log := logger.OrNop(d.Log)
	feed := NewLiveFeed()

	alerts := NewAlertService(d.Mailer, d.Repos.Notifications, d.AlertRecipient, d.IOTimeout, log.Named("alert"), d.Metrics)
	return &Service{
		Ingest:          NewIngestService(d.Repos.Sensors, d.Exporter, d.Publisher, alerts, feed, d.IOTimeout, log.Named("ingest"), d.Metrics),
		Alerting:        alerts,
		DeviceControl:   NewDeviceControlService(d.Publisher, log.Named("device")),
		SensorQuery:     NewSensorQueryService(d.Repos.Sensors),
		NotificationLog: NewNotificationLogService(d.Repos.Notifications),
		Health:          NewHealthService(d.Repos, d.Broker, d.IOTimeout),
		Feed:            feed,
	}
}
