package broker

import (
	"bytes"
	"encoding/json"

	"barn_climate/internal/apperr"
	"barn_climate/internal/models"
)

// DecodeSnapshot parses a telemetry payload. The payload must be a JSON
// object; missing readings default to zero.
func DecodeSnapshot(payload []byte) (models.SensorSnapshot, error) {
	const op = "broker.decode"

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return models.SensorSnapshot{}, apperr.New(apperr.KindDecode, op, "payload is not a JSON object")
	}

	var snap models.SensorSnapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		return models.SensorSnapshot{}, apperr.Wrap(apperr.KindDecode, op, err)
	}
	return snap, nil
}
