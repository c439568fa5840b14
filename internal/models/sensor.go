package models

import "time"

// SensorSnapshot is one reading of the barn sensors as sent by the device.
// Absent JSON fields decode as zero.
type SensorSnapshot struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
	Ammonia     float64 `json:"ammonia"`     // ppm
}

// SensorRecord is a persisted snapshot.
type SensorRecord struct {
	ID          int64     `json:"id"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	Ammonia     float64   `json:"ammonia"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewSensorRecord stamps snap with at (in UTC). The ID is left for storage to assign.
func NewSensorRecord(snap SensorSnapshot, at time.Time) SensorRecord {
	return SensorRecord{
		Temperature: snap.Temperature,
		Humidity:    snap.Humidity,
		Ammonia:     snap.Ammonia,
		CreatedAt:   at.UTC(),
	}
}
