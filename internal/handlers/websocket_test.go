package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"barn_climate/internal/models"
	"barn_climate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", 1 * time.Second},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_too_large", "/ws?interval=20s", 1 * time.Second},
		{"interval_ms_too_large", "/ws?interval_ms=20000", 1 * time.Second},
		{"interval_invalid_string", "/ws?interval=bogus", 1 * time.Second},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tc.u, nil)
			if got := h.parseInterval(c); got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialWS(t *testing.T, s *service.Service, query string) *websocket.Conn {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", NewHandler(s, nil).wsConnect)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestWebSocket_StreamsNewReadings(t *testing.T) {
	feed := service.NewLiveFeed()
	feed.Publish(models.SensorRecord{ID: 1, Temperature: 31}, []models.Action{models.ActionFanOn})
	conn := dialWS(t, &service.Service{Feed: feed, SensorQuery: &mockSensorQuery{}}, "interval_ms=20")

	env := readEnvelope(t, conn)
	var upd service.FeedUpdate
	if env.Type != wsTypeReading || json.Unmarshal(env.Data, &upd) != nil {
		t.Fatalf("bad envelope: %+v", env)
	}
	if upd.Seq != 1 || upd.Reading.Temperature != 31 || len(upd.Actions) != 1 {
		t.Fatalf("unexpected update: %+v", upd)
	}

	feed.Publish(models.SensorRecord{ID: 2, Temperature: 24}, nil)

	env = readEnvelope(t, conn)
	upd = service.FeedUpdate{}
	if err := json.Unmarshal(env.Data, &upd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if upd.Seq != 2 || upd.Reading.ID != 2 {
		t.Fatalf("unexpected second update: %+v", upd)
	}
}

func TestWebSocket_FallsBackToStoredReading(t *testing.T) {
	q := &mockSensorQuery{latest: models.SensorRecord{ID: 9, Ammonia: 12}, hasLatest: true}
	conn := dialWS(t, &service.Service{Feed: service.NewLiveFeed(), SensorQuery: q}, "")

	env := readEnvelope(t, conn)
	var upd service.FeedUpdate
	if err := json.Unmarshal(env.Data, &upd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != wsTypeReading || upd.Reading.ID != 9 || upd.Seq != 0 {
		t.Fatalf("unexpected: %+v %+v", env, upd)
	}
}

func TestWebSocket_EmptyStore(t *testing.T) {
	conn := dialWS(t, &service.Service{SensorQuery: &mockSensorQuery{}}, "")

	if env := readEnvelope(t, conn); env.Type != wsTypeEmpty {
		t.Fatalf("type = %q, want %q", env.Type, wsTypeEmpty)
	}
}

func TestWebSocket_InitialReadError_Closes(t *testing.T) {
	conn := dialWS(t, &service.Service{SensorQuery: &mockSensorQuery{err: errors.New("boom")}}, "")

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected read error (closed), got message: %s", string(raw))
	}
}
