package repository

import (
	"context"
	"database/sql"

	"barn_climate/internal/apperr"
	"barn_climate/internal/models"
)

type SensorRepo interface {
	Save(ctx context.Context, s models.SensorSnapshot) (models.SensorRecord, error)
	Latest(ctx context.Context) (models.SensorRecord, bool, error)
	History(ctx context.Context, limit int) ([]models.SensorRecord, error)
}

type NotificationRepo interface {
	Save(ctx context.Context, message string, via models.Channel) (models.NotificationRecord, error)
	List(ctx context.Context, limit int) ([]models.NotificationRecord, error)
}

// SensorExporter mirrors stored readings to an external time-series store.
type SensorExporter interface {
	Export(ctx context.Context, rec models.SensorRecord) error
}

type Repository struct {
	Sensors       SensorRepo
	Notifications NotificationRepo

	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Sensors:       NewSensorSQLite(db),
		Notifications: NewNotificationSQLite(db),
		db:            db,
	}
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return apperr.Wrap(apperr.KindPersistence, "db.ping", r.db.PingContext(ctx))
}
