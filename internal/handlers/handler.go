package handlers

import (
	"net/http"

	"barn_climate/internal/logger"
	"barn_climate/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	metrics  http.Handler
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// WithMetrics exposes mh at /metrics.
func (h *Handler) WithMetrics(mh http.Handler) *Handler {
	h.metrics = mh
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	router.GET("/", h.home)
	router.GET("/health", h.health)

	h.registerSensorRoutes(router)
	h.registerDeviceRoutes(router)
	router.GET("/notifications", h.listNotifications)

	// Live feed of processed readings (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerSensorRoutes(r *gin.Engine) {
	sensor := r.Group("/sensor")
	{
		sensor.GET("/latest", h.latestReading)
		sensor.GET("/history", h.readingHistory)
	}
}

func (h *Handler) registerDeviceRoutes(r *gin.Engine) {
	device := r.Group("/device")
	{
		device.GET("/actions", h.availableActions)
		// Body example: {"action":"FAN_ON"}
		device.POST("/action", h.triggerAction)
	}
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}
