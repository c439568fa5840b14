package service

import (
	"context"
	"time"
)

const (
	statusOK           = "OK"
	statusError        = "ERROR"
	statusDisconnected = "DISCONNECTED"
)

// HealthStatus is always reported with Status OK while the process serves
// requests; the dependency fields carry the detail.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Broker   string `json:"broker"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	db      pinger
	broker  BrokerStatus
	timeout time.Duration
}

func NewHealthService(db pinger, broker BrokerStatus, timeout time.Duration) *HealthService {
	if timeout <= 0 {
		timeout = defaultIOTimeout
	}
	return &HealthService{db: db, broker: broker, timeout: timeout}
}

func (s *HealthService) Check(ctx context.Context) HealthStatus {
	st := HealthStatus{Status: statusOK, Database: statusOK, Broker: statusOK}

	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if s.db == nil || s.db.Ping(pingCtx) != nil {
		st.Database = statusError
	}
	if s.broker == nil || !s.broker.IsConnected() {
		st.Broker = statusDisconnected
	}
	return st
}
