package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradewatch/internal/engine"
)

// SnapshotProvider is the engine surface the dashboard API consumes.
type SnapshotProvider interface {
	Latest() *engine.Snapshot
	RefreshNow()
	Ready() bool
	State() engine.State
	Subscribe() chan engine.Snapshot
	Unsubscribe(ch chan engine.Snapshot)
}

type DashboardHandler struct {
	Engine SnapshotProvider
	Logger *zap.Logger
}

func (h *DashboardHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/dashboard")
	g.GET("", h.snapshot)
	g.GET("/health", h.healthOnly)
	g.POST("/refresh", h.refresh)
}

// snapshot serves the last completed cycle. The dashboard always gets
// something to render: before the first cycle it gets an explicit
// "warming up" payload rather than an error page.
func (h *DashboardHandler) snapshot(c *gin.Context) {
	snap := h.Engine.Latest()
	if snap == nil {
		Ok(c, nil, map[string]any{
			"state":   string(h.Engine.State()),
			"warming": true,
		})
		return
	}
	Ok(c, snap, map[string]any{
		"state":        string(h.Engine.State()),
		"data_limited": snap.DataLimited,
	})
}

func (h *DashboardHandler) healthOnly(c *gin.Context) {
	snap := h.Engine.Latest()
	if snap == nil {
		Error(c, http.StatusServiceUnavailable, "first cycle pending", nil)
		return
	}
	Ok(c, snap.Health, nil)
}

// refresh queues an out-of-band poll cycle. Repeated requests while a
// cycle is in flight coalesce; the response is always accepted.
func (h *DashboardHandler) refresh(c *gin.Context) {
	h.Engine.RefreshNow()
	c.JSON(http.StatusAccepted, apiResponse{
		Code:    0,
		Message: "refresh queued",
		Meta:    map[string]any{"state": string(h.Engine.State())},
	})
}
