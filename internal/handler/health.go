package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradewatch/internal/db"
)

type HealthHandler struct {
	DB     *db.DB
	Engine Readiness
}

// Readiness is the slice of the engine liveness probes need.
type Readiness interface {
	Ready() bool
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready reports 200 only once the engine has published a first snapshot
// and the preferences store answers a ping.
func (h *HealthHandler) ready(c *gin.Context) {
	if h.Engine == nil || !h.Engine.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "first_cycle_pending"})
		return
	}
	if err := db.Ping(h.DB); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "prefs_db_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
