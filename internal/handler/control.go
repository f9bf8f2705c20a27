package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradewatch/internal/control"
)

// ControlActions is the slice of the controller the API exposes.
type ControlActions interface {
	Start(ctx context.Context) control.ActionResult
	Stop(ctx context.Context) control.ActionResult
}

type ControlHandler struct {
	Control ControlActions
	Logger  *zap.Logger
}

func (h *ControlHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/control")
	g.POST("/start", h.start)
	g.POST("/stop", h.stop)
}

func (h *ControlHandler) start(c *gin.Context) {
	h.respond(c, h.Control.Start(c.Request.Context()))
}

func (h *ControlHandler) stop(c *gin.Context) {
	h.respond(c, h.Control.Stop(c.Request.Context()))
}

// respond maps the action result onto the wire. A failed control action is
// user-initiated and must surface loudly, unlike background poll failures.
func (h *ControlHandler) respond(c *gin.Context, res control.ActionResult) {
	if !res.OK {
		if h.Logger != nil {
			h.Logger.Warn("control action failed",
				zap.String("action", string(res.Action)),
				zap.String("message", res.Message),
			)
		}
		c.JSON(http.StatusBadGateway, apiResponse{
			Code:    http.StatusBadGateway,
			Message: res.Message,
			Data:    res,
		})
		return
	}
	Ok(c, res, nil)
}
