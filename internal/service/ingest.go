package service

import (
	"context"
	"fmt"
	"time"

	"barn_climate/internal/apperr"
	"barn_climate/internal/logger"
	"barn_climate/internal/metrics"
	"barn_climate/internal/models"
	"barn_climate/internal/repository"
	"barn_climate/internal/rules"
)

// IngestResult describes what happened to one reading. Failures are recorded
// here instead of being returned so one bad step never blocks the others.
type IngestResult struct {
	Record      models.SensorRecord
	Persisted   bool
	Actions     []models.Action
	PersistErr  error
	PublishErrs map[models.Action]error
	AlertErr    error
}

type IngestService struct {
	sensors   repository.SensorRepo
	exporter  repository.SensorExporter
	publisher CommandPublisher
	alerts    Alerting
	feed      *LiveFeed
	timeout   time.Duration
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewIngestService(
	sensors repository.SensorRepo,
	exporter repository.SensorExporter,
	publisher CommandPublisher,
	alerts Alerting,
	feed *LiveFeed,
	timeout time.Duration,
	log *logger.Logger,
	m *metrics.Metrics,
) *IngestService {
	if timeout <= 0 {
		timeout = defaultIOTimeout
	}
	return &IngestService{
		sensors:   sensors,
		exporter:  exporter,
		publisher: publisher,
		alerts:    alerts,
		feed:      feed,
		timeout:   timeout,
		log:       logger.OrNop(log),
		metrics:   m,
		now:       time.Now,
	}
}

// Handle stores the reading, evaluates the rules, dispatches the resulting
// commands and raises one alert when any command was issued. Each step is
// isolated: a failing or panicking step is recorded and the rest still run.
func (s *IngestService) Handle(ctx context.Context, snap models.SensorSnapshot) (res IngestResult) {
	res.Actions = []models.Action{}
	res.PublishErrs = map[models.Action]error{}

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("ingest_panic", "panic", r, "reading", snap)
		}
	}()

	// the feed still shows the reading when storage fails
	res.Record = models.NewSensorRecord(snap, s.now())
	res.PersistErr = s.guard("persist", apperr.KindPersistence, func() error {
		rec, err := s.persist(ctx, snap)
		if err == nil {
			res.Record, res.Persisted = rec, true
		}
		return err
	})

	res.Actions = rules.Evaluate(snap)
	s.log.Infow("reading_processed",
		"temperature", snap.Temperature,
		"humidity", snap.Humidity,
		"ammonia", snap.Ammonia,
		"actions", models.JoinActions(res.Actions),
	)

	if len(res.Actions) > 0 {
		for _, a := range res.Actions {
			err := s.guard("publish", apperr.KindPublish, func() error {
				return s.publisher.Publish(ctx, a)
			})
			if err != nil {
				res.PublishErrs[a] = err
			}
		}
		res.AlertErr = s.guard("alert", apperr.KindDelivery, func() error {
			return s.alerts.SendAlert(ctx, snap, res.Actions)
		})
		if res.AlertErr != nil {
			s.log.Errorw("alert_failed", "actions", models.JoinActions(res.Actions), "err", res.AlertErr)
		}
	}

	if s.feed != nil {
		s.feed.Publish(res.Record, res.Actions)
	}
	return res
}

// guard runs one pipeline step and turns a panic into an error of kind.
func (s *IngestService) guard(step string, kind apperr.Kind, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("ingest_step_panic", "step", step, "panic", r)
			err = apperr.Wrap(kind, "ingest."+step, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}

func (s *IngestService) persist(ctx context.Context, snap models.SensorSnapshot) (models.SensorRecord, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rec, err := s.sensors.Save(opCtx, snap)
	if err != nil {
		s.metrics.PersistenceFailed("sensor_save")
		s.log.Errorw("reading_save_failed", "err", err)
		return models.SensorRecord{}, err
	}

	if s.exporter != nil {
		if err := s.exporter.Export(opCtx, rec); err != nil {
			s.metrics.PersistenceFailed("influx_export")
			s.log.Warnw("reading_export_failed", "id", rec.ID, "err", err)
		}
	}
	return rec, nil
}
