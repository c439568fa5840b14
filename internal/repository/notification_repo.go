package repository

import (
	"context"
	"database/sql"
	"time"

	"barn_climate/internal/apperr"
	"barn_climate/internal/models"
)

const (
	insertNotification = `INSERT INTO notifications (message, sent_via, created_at) VALUES (?, ?, ?)`

	selectNotifications = `SELECT id, message, sent_via, created_at FROM notifications
ORDER BY created_at DESC, id DESC LIMIT ?`
)

type NotificationSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewNotificationSQLite(db *sql.DB) *NotificationSQLite {
	return &NotificationSQLite{db: db, now: time.Now}
}

func (r *NotificationSQLite) Save(ctx context.Context, message string, via models.Channel) (models.NotificationRecord, error) {
	rec := models.NotificationRecord{
		Message:   message,
		SentVia:   via,
		CreatedAt: r.now().UTC(),
	}

	res, err := r.db.ExecContext(ctx, insertNotification, rec.Message, string(rec.SentVia), rec.CreatedAt)
	if err != nil {
		return models.NotificationRecord{}, apperr.Wrap(apperr.KindPersistence, "notification.save", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return models.NotificationRecord{}, apperr.Wrap(apperr.KindPersistence, "notification.save", err)
	}
	return rec, nil
}

// List returns up to limit notifications, newest first.
func (r *NotificationSQLite) List(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	out := make([]models.NotificationRecord, 0, max(limit, 0))
	if limit <= 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, selectNotifications, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "notification.list", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec models.NotificationRecord
			via string
		)
		if err := rows.Scan(&rec.ID, &rec.Message, &via, &rec.CreatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindPersistence, "notification.list", err)
		}
		rec.SentVia = models.Channel(via)
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "notification.list", err)
	}
	return out, nil
}
