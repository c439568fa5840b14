package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"barn_climate/internal/models"
	"barn_climate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 1 * time.Second
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms

	wsTypeReading = "reading"
	wsTypeEmpty   = "empty"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	// The dashboard is served from other origins on the farm LAN.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Live readings
// @Description  WebSocket. Sends the latest processed reading on connect and again whenever a new one arrives. Poll period via ?interval=2s or ?interval_ms=2000 (max 10s).
// @Tags         sensor
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	var lastSeq uint64
	if err := h.sendInitial(c.Request.Context(), conn, &lastSeq); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendIfChanged(conn, &lastSeq); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		}
	}
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return defaultInterval
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendInitial writes the live reading, or the last stored one when nothing
// has been processed since startup.
func (h *Handler) sendInitial(ctx context.Context, conn *websocket.Conn, lastSeq *uint64) error {
	if upd, ok := h.latestUpdate(); ok {
		*lastSeq = upd.Seq
		return writeEnvelope(conn, wsEnvelope{Type: wsTypeReading, Data: upd})
	}

	rec, ok, err := h.services.SensorQuery.Latest(ctx)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_latest_reading_failed", "err", err)
		}
		return err
	}
	if !ok {
		return writeEnvelope(conn, wsEnvelope{Type: wsTypeEmpty})
	}
	return writeEnvelope(conn, wsEnvelope{Type: wsTypeReading, Data: service.FeedUpdate{Reading: rec, Actions: []models.Action{}}})
}

func (h *Handler) sendIfChanged(conn *websocket.Conn, lastSeq *uint64) error {
	upd, ok := h.latestUpdate()
	if !ok || upd.Seq == *lastSeq {
		return nil
	}
	*lastSeq = upd.Seq
	return writeEnvelope(conn, wsEnvelope{Type: wsTypeReading, Data: upd})
}

func (h *Handler) latestUpdate() (service.FeedUpdate, bool) {
	if h.services.Feed == nil {
		return service.FeedUpdate{}, false
	}
	return h.services.Feed.Latest()
}

func writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
