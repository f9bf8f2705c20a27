package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tradewatch/internal/config"
	"tradewatch/internal/probe"
)

// Action is a manual trading-control request.
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
)

// ActionResult is the user-facing outcome of a control request. Control
// failures are the one error category that must stay visible, so the
// result always carries an explicit message instead of being absorbed into
// a health status.
type ActionResult struct {
	OK          bool      `json:"ok"`
	Action      Action    `json:"action"`
	Endpoint    string    `json:"endpoint,omitempty"`
	Message     string    `json:"message"`
	CompletedAt time.Time `json:"completed_at"`
}

// Controller resolves start/stop actions through an ordered list of
// control endpoints with the same first-success-wins discipline the field
// resolver uses: a dead primary falls through to the next candidate.
type Controller struct {
	HTTP      *http.Client
	Logger    *zap.Logger
	Endpoints []probe.Endpoint
}

func NewFromConfig(cfg config.ControlConfig, logger *zap.Logger) *Controller {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Controller{
		HTTP:   &http.Client{Timeout: timeout},
		Logger: logger,
	}
	for _, ep := range cfg.Endpoints {
		c.Endpoints = append(c.Endpoints, probe.Endpoint{Name: ep.Name, URL: ep.URL})
	}
	return c
}

func (c *Controller) Start(ctx context.Context) ActionResult {
	return c.perform(ctx, ActionStart)
}

func (c *Controller) Stop(ctx context.Context) ActionResult {
	return c.perform(ctx, ActionStop)
}

// perform tries each endpoint in priority order and returns on the first
// acknowledged request. It never returns an error: all-endpoints-failed is
// an explicit failure result.
func (c *Controller) perform(ctx context.Context, action Action) ActionResult {
	now := func() time.Time { return time.Now().UTC() }
	if len(c.Endpoints) == 0 {
		return ActionResult{
			Action:      action,
			Message:     "no control endpoints configured",
			CompletedAt: now(),
		}
	}

	var lastErr string
	for _, ep := range c.Endpoints {
		msg, err := c.post(ctx, ep, action)
		if err != nil {
			lastErr = fmt.Sprintf("%s: %v", ep.Name, err)
			if c.Logger != nil {
				c.Logger.Warn("control endpoint rejected action, trying next",
					zap.String("endpoint", ep.Name),
					zap.String("action", string(action)),
					zap.Error(err),
				)
			}
			continue
		}
		return ActionResult{
			OK:          true,
			Action:      action,
			Endpoint:    ep.Name,
			Message:     msg,
			CompletedAt: now(),
		}
	}

	return ActionResult{
		Action:      action,
		Message:     fmt.Sprintf("all control endpoints failed, last error: %s", lastErr),
		CompletedAt: now(),
	}
}

func (c *Controller) post(ctx context.Context, ep probe.Endpoint, action Action) (string, error) {
	payload, _ := json.Marshal(map[string]string{"action": string(action)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	var parsed struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// A 2xx with an unreadable body still counts as accepted.
		return "accepted", nil
	}
	if !parsed.Success {
		if parsed.Message != "" {
			return "", fmt.Errorf("rejected: %s", parsed.Message)
		}
		return "", fmt.Errorf("rejected")
	}
	if parsed.Message == "" {
		return "accepted", nil
	}
	return parsed.Message, nil
}
