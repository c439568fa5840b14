package repository

import (
	"context"

	"barn_climate/internal/apperr"
	"barn_climate/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const influxMeasurement = "barn_climate"

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// SensorInflux writes every stored reading as a point of the barn_climate
// measurement.
type SensorInflux struct {
	client influxdb2.Client
	writer pointWriter
}

func NewSensorInflux(url, token, org, bucket string) *SensorInflux {
	client := influxdb2.NewClient(url, token)
	return &SensorInflux{client: client, writer: client.WriteAPIBlocking(org, bucket)}
}

func (s *SensorInflux) Export(ctx context.Context, rec models.SensorRecord) error {
	p := influxdb2.NewPoint(influxMeasurement,
		map[string]string{"source": "barn"},
		map[string]interface{}{
			"temperature": rec.Temperature,
			"humidity":    rec.Humidity,
			"ammonia":     rec.Ammonia,
		},
		rec.CreatedAt,
	)
	return apperr.Wrap(apperr.KindPersistence, "influx.write", s.writer.WritePoint(ctx, p))
}

func (s *SensorInflux) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
