package service

import (
	"context"
	"errors"
	"sync"

	"barn_climate/internal/models"
	"barn_climate/internal/notifier"
)

// ---- collaborator stubs ----

type sensorRepoStub struct {
	saveErr  error
	saved    []models.SensorSnapshot
	latest   models.SensorRecord
	hasRow   bool
	readErr  error
	history  []models.SensorRecord
	lastSize int
}

func (s *sensorRepoStub) Save(_ context.Context, snap models.SensorSnapshot) (models.SensorRecord, error) {
	s.saved = append(s.saved, snap)
	if s.saveErr != nil {
		return models.SensorRecord{}, s.saveErr
	}
	return models.SensorRecord{
		ID:          int64(len(s.saved)),
		Temperature: snap.Temperature,
		Humidity:    snap.Humidity,
		Ammonia:     snap.Ammonia,
	}, nil
}

func (s *sensorRepoStub) Latest(context.Context) (models.SensorRecord, bool, error) {
	return s.latest, s.hasRow, s.readErr
}

func (s *sensorRepoStub) History(_ context.Context, limit int) ([]models.SensorRecord, error) {
	s.lastSize = limit
	return s.history, s.readErr
}

type noteRepoStub struct {
	err   error
	saved []models.NotificationRecord
}

func (n *noteRepoStub) Save(_ context.Context, msg string, via models.Channel) (models.NotificationRecord, error) {
	if n.err != nil {
		return models.NotificationRecord{}, n.err
	}
	rec := models.NotificationRecord{ID: int64(len(n.saved) + 1), Message: msg, SentVia: via}
	n.saved = append(n.saved, rec)
	return rec, nil
}

func (n *noteRepoStub) List(_ context.Context, limit int) ([]models.NotificationRecord, error) {
	if limit < len(n.saved) {
		return n.saved[:limit], n.err
	}
	return n.saved, n.err
}

type publisherStub struct {
	mu       sync.Mutex
	sent     []models.Action
	err      error
	failOn   map[models.Action]error
	panicOn  models.Action
}

// Publish records every attempt, including the one that panics.
func (p *publisherStub) Publish(_ context.Context, a models.Action) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, a)
	if a == p.panicOn {
		panic("transport exploded")
	}
	if err, ok := p.failOn[a]; ok {
		return err
	}
	return p.err
}

type mailerStub struct {
	err  error
	sent []notifier.Message
}

func (m *mailerStub) Send(_ context.Context, msg notifier.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

type alertStub struct {
	err   error
	panic bool
	calls [][]models.Action
}

func (a *alertStub) SendAlert(_ context.Context, _ models.SensorSnapshot, actions []models.Action) error {
	a.calls = append(a.calls, actions)
	if a.panic {
		panic("template exploded")
	}
	return a.err
}

type exporterStub struct {
	err      error
	exported []models.SensorRecord
}

func (e *exporterStub) Export(_ context.Context, rec models.SensorRecord) error {
	e.exported = append(e.exported, rec)
	return e.err
}

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

type brokerStub bool

func (b brokerStub) IsConnected() bool { return bool(b) }

var errBoom = errors.New("boom")
