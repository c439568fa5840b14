package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const statusRunning = "barn climate server running"

// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       / [get]
func (h *Handler) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusRunning})
}

// @Summary      Health check
// @Description  Always 200 while the process serves requests; database and broker report their own state.
// @Tags         system
// @Produce      json
// @Success      200  {object}  service.HealthStatus
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Health.Check(c.Request.Context()))
}
