package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit      = 10
	defaultNotificationLimit = 20
	maxListLimit             = 500

	msgNoSensorData = "no sensor data available"
	errLoadReadings = "failed to load sensor data"
	errLoadNotices  = "failed to load notifications"
)

// parseLimit reads ?limit=N. Missing or non-numeric values give def; the
// result is clamped to [1, maxListLimit].
func parseLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return def
	}
	return min(max(n, 1), maxListLimit)
}

// @Summary      Latest reading
// @Tags         sensor
// @Produce      json
// @Success      200  {object}  models.SensorRecord
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /sensor/latest [get]
func (h *Handler) latestReading(c *gin.Context) {
	rec, ok, err := h.services.SensorQuery.Latest(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadReadings, "sensor_latest_failed", err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": msgNoSensorData})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary      Reading history
// @Description  Newest first.
// @Tags         sensor
// @Produce      json
// @Param        limit  query  int  false  "Number of readings (1-500)"  default(10)
// @Success      200    {array}   models.SensorRecord
// @Failure      500    {object}  map[string]string
// @Router       /sensor/history [get]
func (h *Handler) readingHistory(c *gin.Context) {
	limit := parseLimit(c, defaultHistoryLimit)
	recs, err := h.services.SensorQuery.History(c.Request.Context(), limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadReadings, "sensor_history_failed", err, "limit", limit)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// @Summary      Notification history
// @Description  Newest first.
// @Tags         notifications
// @Produce      json
// @Param        limit  query  int  false  "Number of notifications (1-500)"  default(20)
// @Success      200    {array}   models.NotificationRecord
// @Failure      500    {object}  map[string]string
// @Router       /notifications [get]
func (h *Handler) listNotifications(c *gin.Context) {
	limit := parseLimit(c, defaultNotificationLimit)
	recs, err := h.services.NotificationLog.List(c.Request.Context(), limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadNotices, "notifications_list_failed", err, "limit", limit)
		return
	}
	c.JSON(http.StatusOK, recs)
}
