package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"barn_climate/internal/service"
)

func TestAvailableActions(t *testing.T) {
	t.Parallel()
	r := newTestRouter(&service.Service{DeviceControl: &mockDeviceControl{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/device/actions", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Available []string `json:"available_actions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	want := []string{"OPEN_WINDOW", "CLOSE_WINDOW", "FAN_ON", "FAN_OFF", "HEATER_ON", "HEATER_OFF"}
	if strings.Join(body.Available, ",") != strings.Join(want, ",") {
		t.Fatalf("actions = %v", body.Available)
	}
}

func TestTriggerAction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		body      string
		pubErr    error
		wantCode  int
		wantField string
		wantValue string
		wantExec  int
	}{
		{"ok", `{"action":"FAN_ON"}`, nil, http.StatusOK, "message", "Action 'FAN_ON' sent to device", 1},
		{"empty object", `{}`, nil, http.StatusBadRequest, "error", "action field required", 1},
		{"empty action", `{"action":""}`, nil, http.StatusBadRequest, "error", "action field required", 1},
		{"malformed", `{"action":`, nil, http.StatusBadRequest, "error", "action field required", 0},
		{"no body", ``, nil, http.StatusBadRequest, "error", "action field required", 0},
		{"unknown", `{"action":"LAUNCH"}`, nil, http.StatusBadRequest, "error", `unknown action "LAUNCH"`, 1},
		{"broker down", `{"action":"HEATER_ON"}`, errors.New("broker not connected"), http.StatusInternalServerError, "error", "failed to send command to device", 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dc := &mockDeviceControl{err: tc.pubErr}
			r := newTestRouter(&service.Service{DeviceControl: dc})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/device/action", strings.NewReader(tc.body))
			req.Header = jsonHeader()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.wantCode, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad json: %v", err)
			}
			if body[tc.wantField] != tc.wantValue {
				t.Fatalf("%s = %v, want %q", tc.wantField, body[tc.wantField], tc.wantValue)
			}
			if dc.executions != tc.wantExec {
				t.Fatalf("executions = %d, want %d", dc.executions, tc.wantExec)
			}
		})
	}
}
