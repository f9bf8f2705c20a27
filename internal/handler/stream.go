package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// StreamHandler pushes each new snapshot to WebSocket subscribers. This is
// the push half of the subscribe contract; the REST snapshot endpoint is
// the pull half.
type StreamHandler struct {
	Engine SnapshotProvider
	Logger *zap.Logger
}

const streamPingInterval = 30 * time.Second

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/dashboard/stream", h.stream)
}

func (h *StreamHandler) stream(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := c.Request.Context()
	sub := h.Engine.Subscribe()
	defer h.Engine.Unsubscribe(sub)

	// Send the last known snapshot right away so a fresh client does not
	// stare at a blank dashboard until the next cycle.
	if snap := h.Engine.Latest(); snap != nil {
		payload, err := json.Marshal(snap)
		if err == nil {
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		case snap, ok := <-sub:
			if !ok {
				// Engine torn down.
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}
