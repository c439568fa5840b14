package service

import (
	"context"

	"barn_climate/internal/models"
	"barn_climate/internal/repository"
)

type SensorQueryService struct {
	sensors repository.SensorRepo
}

func NewSensorQueryService(sensors repository.SensorRepo) *SensorQueryService {
	return &SensorQueryService{sensors: sensors}
}

func (s *SensorQueryService) Latest(ctx context.Context) (models.SensorRecord, bool, error) {
	return s.sensors.Latest(ctx)
}

func (s *SensorQueryService) History(ctx context.Context, limit int) ([]models.SensorRecord, error) {
	return s.sensors.History(ctx, limit)
}

type NotificationLogService struct {
	notes repository.NotificationRepo
}

func NewNotificationLogService(notes repository.NotificationRepo) *NotificationLogService {
	return &NotificationLogService{notes: notes}
}

func (s *NotificationLogService) List(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	return s.notes.List(ctx, limit)
}
