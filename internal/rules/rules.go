// Package rules maps a sensor snapshot to the corrective actions the barn needs.
package rules

import "barn_climate/internal/models"

// Thresholds. Values between a pair of bounds form a dead zone in which no
// action is issued for that rule.
const (
	AmmoniaHighPPM = 25.0
	AmmoniaLowPPM  = 10.0

	FanOnTempC        = 30.0
	FanOnHumidityPct  = 70.0
	FanOffTempC       = 28.0
	FanOffHumidityPct = 60.0

	HeaterOnTempC  = 22.0
	HeaterOffTempC = 25.0
)

// Evaluate runs the ammonia, fan and heater rules independently and returns
// their actions in that order. At most one action per rule. The result is
// never nil; an empty slice means no action is required.
func Evaluate(s models.SensorSnapshot) []models.Action {
	actions := make([]models.Action, 0, 3)

	if s.Ammonia > AmmoniaHighPPM {
		actions = append(actions, models.ActionOpenWindow)
	} else if s.Ammonia < AmmoniaLowPPM {
		actions = append(actions, models.ActionCloseWindow)
	}

	if s.Temperature > FanOnTempC && s.Humidity > FanOnHumidityPct {
		actions = append(actions, models.ActionFanOn)
	} else if s.Temperature < FanOffTempC && s.Humidity < FanOffHumidityPct {
		actions = append(actions, models.ActionFanOff)
	}

	if s.Temperature < HeaterOnTempC {
		actions = append(actions, models.ActionHeaterOn)
	} else if s.Temperature > HeaterOffTempC {
		actions = append(actions, models.ActionHeaterOff)
	}

	return actions
}
