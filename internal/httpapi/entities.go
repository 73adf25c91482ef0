package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"onecta_bridge/internal/api"
	"onecta_bridge/internal/control"
	"onecta_bridge/internal/entity"
	"onecta_bridge/internal/gate"
	"onecta_bridge/internal/types"
)

type deviceSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Available   bool      `json:"available"`
	LastUpdated time.Time `json:"last_updated"`
	Revision    uint64    `json:"revision"`
}

func (h *Handler) listEntities(c *gin.Context) {
	c.JSON(http.StatusOK, h.entities.States())
}

func (h *Handler) getEntity(c *gin.Context) {
	e, ok := h.entities.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": entity.ErrUnknownEntity.Error()})
		return
	}
	c.JSON(http.StatusOK, e.State())
}

func (h *Handler) command(c *gin.Context) {
	id := c.Param("id")

	var cmd types.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if cmd.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: missing action"})
		return
	}

	if err := h.entities.Command(c.Request.Context(), id, cmd); err != nil {
		resp := gin.H{"error": err.Error()}
		var partial *control.PartialCommandError
		if errors.As(err, &partial) {
			resp["applied"] = partial.Applied
			resp["failed"] = partial.Failed
		}
		c.JSON(statusFor(err), resp)
		return
	}

	e, ok := h.entities.Get(id)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, e.State())
}

func (h *Handler) listDevices(c *gin.Context) {
	devices := h.devices.List()
	out := make([]deviceSummary, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceSummary{
			ID:          d.ID,
			Name:        d.Name(),
			Available:   d.Available(),
			LastUpdated: d.LastUpdated(),
			Revision:    d.Revision(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) rateLimits(c *gin.Context) {
	c.JSON(http.StatusOK, h.limits.RateLimits())
}

func (h *Handler) refresh(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"outcome": h.poller.Poll(c.Request.Context())})
}

// statusFor maps command errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrUnknownEntity):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrUnsupportedAction), errors.Is(err, control.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, control.ErrCapabilityAbsent):
		return http.StatusConflict
	case errors.Is(err, api.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, gate.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, api.ErrTransport), errors.Is(err, control.ErrPartialCommand):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
