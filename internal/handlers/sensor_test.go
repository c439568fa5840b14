package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"barn_climate/internal/models"
	"barn_climate/internal/service"
)

func TestParseLimit(t *testing.T) {
	t.Parallel()

	q := &mockSensorQuery{}
	r := newTestRouter(&service.Service{SensorQuery: q})

	cases := []struct {
		url  string
		want int
	}{
		{"/sensor/history", 10},
		{"/sensor/history?limit=2", 2},
		{"/sensor/history?limit=abc", 10},
		{"/sensor/history?limit=0", 1},
		{"/sensor/history?limit=-5", 1},
		{"/sensor/history?limit=100000", 500},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.url, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tc.url, w.Code)
		}
		if q.lastLimit != tc.want {
			t.Fatalf("%s: limit = %d, want %d", tc.url, q.lastLimit, tc.want)
		}
	}
}

func TestLatestReading(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		q        *mockSensorQuery
		wantCode int
		wantKey  string
	}{
		{"found", &mockSensorQuery{latest: models.SensorRecord{ID: 4, Temperature: 24, CreatedAt: at}, hasLatest: true}, http.StatusOK, "temperature"},
		{"empty", &mockSensorQuery{}, http.StatusNotFound, "message"},
		{"db error", &mockSensorQuery{err: errors.New("locked")}, http.StatusInternalServerError, "error"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := newTestRouter(&service.Service{SensorQuery: tc.q})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sensor/latest", nil))

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.wantCode, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad json: %v", err)
			}
			if _, ok := body[tc.wantKey]; !ok {
				t.Fatalf("body %v missing %q", body, tc.wantKey)
			}
		})
	}
}

func TestReadingHistory_NewestFirst(t *testing.T) {
	t.Parallel()

	q := &mockSensorQuery{history: []models.SensorRecord{{ID: 3}, {ID: 2}}}
	r := newTestRouter(&service.Service{SensorQuery: q})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sensor/history?limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var got []models.SensorRecord
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("history = %+v", got)
	}
}

func TestListNotifications(t *testing.T) {
	t.Parallel()

	log := &mockNotificationLog{resp: []models.NotificationRecord{{ID: 1, Message: "Alert: FAN_ON", SentVia: models.ChannelSystem}}}
	r := newTestRouter(&service.Service{NotificationLog: log})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if log.lastLimit != 20 {
		t.Fatalf("limit = %d, want default 20", log.lastLimit)
	}

	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(got) != 1 || got[0]["sent_via"] != "system" {
		t.Fatalf("notifications = %v", got)
	}

	failing := newTestRouter(&service.Service{NotificationLog: &mockNotificationLog{err: errors.New("down")}})
	w = httptest.NewRecorder()
	failing.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications?limit=5", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
