package service

import (
	"sync"

	"barn_climate/internal/models"
)

// FeedUpdate is the most recent processed reading. Seq grows by one with
// every reading so readers can tell whether anything changed.
type FeedUpdate struct {
	Seq     uint64              `json:"seq"`
	Reading models.SensorRecord `json:"reading"`
	Actions []models.Action     `json:"actions"`
}

// LiveFeed holds the last reading handled by the ingest pipeline.
type LiveFeed struct {
	mu   sync.RWMutex
	last FeedUpdate
}

func NewLiveFeed() *LiveFeed { return &LiveFeed{} }

func (f *LiveFeed) Publish(rec models.SensorRecord, actions []models.Action) {
	cp := append([]models.Action{}, actions...)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = FeedUpdate{Seq: f.last.Seq + 1, Reading: rec, Actions: cp}
}

// Latest returns the last update; ok is false until the first reading.
func (f *LiveFeed) Latest() (FeedUpdate, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.last, f.last.Seq > 0
}
