package models

import (
	"testing"
	"time"
)

func TestNewSensorRecord(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("EET", 2*3600))

	rec := NewSensorRecord(SensorSnapshot{Temperature: 31, Humidity: 75, Ammonia: 5}, at)

	if rec.ID != 0 {
		t.Fatalf("id = %d, want 0 until stored", rec.ID)
	}
	if rec.Temperature != 31 || rec.Humidity != 75 || rec.Ammonia != 5 {
		t.Fatalf("readings = %+v", rec)
	}
	if rec.CreatedAt.Location() != time.UTC || !rec.CreatedAt.Equal(at) {
		t.Fatalf("created at = %v, want %v in UTC", rec.CreatedAt, at)
	}
}
