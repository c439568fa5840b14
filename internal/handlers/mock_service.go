package handlers

import (
	"context"
	"net/http"
	"sync"

	"barn_climate/internal/apperr"
	"barn_climate/internal/models"
	"barn_climate/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockSensorQuery struct {
	latest    models.SensorRecord
	hasLatest bool
	history   []models.SensorRecord
	err       error

	mu        sync.Mutex
	lastLimit int
}

func (m *mockSensorQuery) Latest(ctx context.Context) (models.SensorRecord, bool, error) {
	return m.latest, m.hasLatest, m.err
}

func (m *mockSensorQuery) History(ctx context.Context, limit int) ([]models.SensorRecord, error) {
	m.mu.Lock()
	m.lastLimit = limit
	m.mu.Unlock()
	return m.history, m.err
}

type mockNotificationLog struct {
	resp      []models.NotificationRecord
	err       error
	lastLimit int
}

func (m *mockNotificationLog) List(ctx context.Context, limit int) ([]models.NotificationRecord, error) {
	m.lastLimit = limit
	return m.resp, m.err
}

type mockDeviceControl struct {
	err        error
	lastRaw    string
	executions int
}

func (m *mockDeviceControl) Actions() []models.Action { return models.AllActions() }

// Execute mirrors the real validation so handler status mapping can be tested.
func (m *mockDeviceControl) Execute(ctx context.Context, raw string) (models.Action, error) {
	m.executions++
	m.lastRaw = raw
	if raw == "" {
		return "", service.ErrActionRequired
	}
	a, err := models.ParseAction(raw)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "device.execute", err)
	}
	return a, m.err
}

type mockHealth struct {
	status service.HealthStatus
}

func (m *mockHealth) Check(ctx context.Context) service.HealthStatus { return m.status }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}
