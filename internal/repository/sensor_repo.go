package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"barn_climate/internal/apperr"
	"barn_climate/internal/models"
)

const (
	insertSensor = `INSERT INTO sensor_data (temperature, humidity, ammonia, created_at) VALUES (?, ?, ?, ?)`

	selectSensorLatest = `SELECT id, temperature, humidity, ammonia, created_at FROM sensor_data
ORDER BY created_at DESC, id DESC LIMIT 1`

	selectSensorHistory = `SELECT id, temperature, humidity, ammonia, created_at FROM sensor_data
ORDER BY created_at DESC, id DESC LIMIT ?`
)

type SensorSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSensorSQLite(db *sql.DB) *SensorSQLite {
	return &SensorSQLite{db: db, now: time.Now}
}

// Save stores the snapshot stamped with the current UTC time.
func (r *SensorSQLite) Save(ctx context.Context, s models.SensorSnapshot) (models.SensorRecord, error) {
	rec := models.NewSensorRecord(s, r.now())

	res, err := r.db.ExecContext(ctx, insertSensor, rec.Temperature, rec.Humidity, rec.Ammonia, rec.CreatedAt)
	if err != nil {
		return models.SensorRecord{}, apperr.Wrap(apperr.KindPersistence, "sensor.save", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return models.SensorRecord{}, apperr.Wrap(apperr.KindPersistence, "sensor.save", err)
	}
	return rec, nil
}

// Latest returns the newest record. ok is false when the table is empty.
func (r *SensorSQLite) Latest(ctx context.Context) (rec models.SensorRecord, ok bool, err error) {
	row := r.db.QueryRowContext(ctx, selectSensorLatest)
	if err := scanSensor(row, &rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SensorRecord{}, false, nil
		}
		return models.SensorRecord{}, false, apperr.Wrap(apperr.KindPersistence, "sensor.latest", err)
	}
	return rec, true, nil
}

// History returns up to limit records, newest first.
func (r *SensorSQLite) History(ctx context.Context, limit int) ([]models.SensorRecord, error) {
	out := make([]models.SensorRecord, 0, max(limit, 0))
	if limit <= 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, selectSensorHistory, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "sensor.history", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.SensorRecord
		if err := scanSensor(rows, &rec); err != nil {
			return nil, apperr.Wrap(apperr.KindPersistence, "sensor.history", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "sensor.history", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSensor(s scanner, rec *models.SensorRecord) error {
	if err := s.Scan(&rec.ID, &rec.Temperature, &rec.Humidity, &rec.Ammonia, &rec.CreatedAt); err != nil {
		return err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return nil
}
