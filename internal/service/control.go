package service

import (
	"context"
	"errors"
	"strings"

	"barn_climate/internal/apperr"
	"barn_climate/internal/logger"
	"barn_climate/internal/models"
)

// ErrActionRequired is returned when a manual command names no action.
var ErrActionRequired = apperr.New(apperr.KindValidation, "device.execute", "action field required")

type DeviceControlService struct {
	publisher CommandPublisher
	log       *logger.Logger
}

func NewDeviceControlService(publisher CommandPublisher, log *logger.Logger) *DeviceControlService {
	return &DeviceControlService{publisher: publisher, log: logger.OrNop(log)}
}

// Actions lists every command the devices understand.
func (s *DeviceControlService) Actions() []models.Action {
	return models.AllActions()
}

// Execute validates raw and sends it to the devices. Rule evaluation is
// bypassed entirely.
func (s *DeviceControlService) Execute(ctx context.Context, raw string) (models.Action, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrActionRequired
	}
	action, err := models.ParseAction(raw)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "device.execute", err)
	}

	if err := s.publisher.Publish(ctx, action); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Errorw("manual_command_failed", "action", action, "err", err)
		}
		return action, err
	}
	s.log.Infow("manual_command_sent", "action", action)
	return action, nil
}
