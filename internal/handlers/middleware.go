package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// requestLogger tags every request with an id (kept if the caller sent one)
// and logs the outcome once the handler returns.
func (h *Handler) requestLogger(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("requestId", id)
	c.Header(requestIDHeader, id)

	start := time.Now()
	c.Next()

	if h.log == nil {
		return
	}
	fields := []interface{}{
		"request_id", id,
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"latency", time.Since(start),
	}
	if c.Writer.Status() >= 500 {
		h.log.Warnw("http_request", fields...)
		return
	}
	h.log.Debugw("http_request", fields...)
}
