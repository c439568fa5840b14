package models

import (
	"fmt"
	"strings"
)

// Action is a corrective command understood by the barn controller board.
type Action string

const (
	ActionOpenWindow  Action = "OPEN_WINDOW"
	ActionCloseWindow Action = "CLOSE_WINDOW"
	ActionFanOn       Action = "FAN_ON"
	ActionFanOff      Action = "FAN_OFF"
	ActionHeaterOn    Action = "HEATER_ON"
	ActionHeaterOff   Action = "HEATER_OFF"
)

var allActions = []Action{
	ActionOpenWindow,
	ActionCloseWindow,
	ActionFanOn,
	ActionFanOff,
	ActionHeaterOn,
	ActionHeaterOff,
}

// AllActions returns a copy of the closed action set in its canonical order.
func AllActions() []Action {
	out := make([]Action, len(allActions))
	copy(out, allActions)
	return out
}

// Valid reports whether a belongs to the action set.
func (a Action) Valid() bool {
	for _, known := range allActions {
		if a == known {
			return true
		}
	}
	return false
}

func (a Action) String() string { return string(a) }

// ParseAction trims s and matches it against the action set. Matching is case-sensitive.
func ParseAction(s string) (Action, error) {
	a := Action(strings.TrimSpace(s))
	if !a.Valid() {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// JoinActions renders actions as a comma separated list, e.g. "OPEN_WINDOW, FAN_ON".
func JoinActions(actions []Action) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, string(a))
	}
	return strings.Join(parts, ", ")
}

// Command is the message published on the command topic.
type Command struct {
	Action Action `json:"action"`
}
