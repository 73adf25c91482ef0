// Package httpapi serves the local control API: entity state, commands,
// device summaries, rate limits, metrics and health.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"onecta_bridge/internal/device"
	"onecta_bridge/internal/entity"
	"onecta_bridge/internal/types"
)

// EntityService is the entity manager as seen by the API.
type EntityService interface {
	States() []types.EntityState
	Get(id string) (entity.Entity, bool)
	Command(ctx context.Context, id string, cmd types.Command) error
}

// DeviceLister lists known devices.
type DeviceLister interface {
	List() []*device.Device
}

// RateLimitSource reports the last seen rate-limit counters.
type RateLimitSource interface {
	RateLimits() types.RateLimits
}

// Poller triggers a throttled refresh.
type Poller interface {
	Poll(ctx context.Context) string
}

// Handler wires the HTTP layer to the bridge components.
type Handler struct {
	entities EntityService
	devices  DeviceLister
	limits   RateLimitSource
	poller   Poller
	metrics  http.Handler
	logger   *slog.Logger
}

// NewHandler constructs a handler. The metrics handler may be nil.
func NewHandler(entities EntityService, devices DeviceLister, limits RateLimitSource, poller Poller, metrics http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		entities: entities,
		devices:  devices,
		limits:   limits,
		poller:   poller,
		metrics:  metrics,
		logger:   logger,
	}
}

// Routes builds the Gin router with all routes registered.
func (h *Handler) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := router.Group("/api")
	{
		api.GET("/entities", h.listEntities)
		api.GET("/entities/:id", h.getEntity)
		// Body example: {"action":"select_option","option":"Holiday"}
		api.POST("/entities/:id/command", h.command)
		api.GET("/devices", h.listDevices)
		api.GET("/ratelimits", h.rateLimits)
		api.POST("/refresh", h.refresh)
	}

	return router
}

// requestLogger logs every request at debug level.
func (h *Handler) requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debug("HTTP request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func (h *Handler) health(c *gin.Context) {
	c.String(http.StatusOK, "OK\n")
}
