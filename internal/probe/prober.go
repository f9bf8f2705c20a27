package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSlowThreshold marks a 2xx response as degraded when it took
	// longer than this to arrive.
	DefaultSlowThreshold = 2 * time.Second

	// DefaultTimeout bounds a single request when the endpoint spec does
	// not carry its own timeout.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// Prober issues a single timed request against one endpoint and classifies
// the outcome. It never retries and never returns an error: every failure
// mode maps to a Result status.
type Prober struct {
	HTTP          *http.Client
	Logger        *zap.Logger
	SlowThreshold time.Duration
}

func (p *Prober) Probe(ctx context.Context, ep Endpoint) Result {
	now := time.Now().UTC()
	client := p.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	slow := p.SlowThreshold
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return Result{
			Endpoint:   ep,
			Status:     StatusFailed,
			Message:    fmt.Sprintf("request build failed: %v", err),
			ObservedAt: now,
		}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		// Covers transport errors and the per-probe timeout.
		return Result{
			Endpoint:   ep,
			Status:     StatusFailed,
			Message:    fmt.Sprintf("request failed: %v", err),
			ObservedAt: now,
		}
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			Endpoint:   ep,
			Status:     StatusFailed,
			LatencyMs:  &latency,
			Message:    fmt.Sprintf("http %d", resp.StatusCode),
			ObservedAt: now,
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{
			Endpoint:   ep,
			Status:     StatusDegraded,
			LatencyMs:  &latency,
			Message:    fmt.Sprintf("body read failed: %v", err),
			ObservedAt: now,
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if p.Logger != nil {
			p.Logger.Debug("probe body not parseable",
				zap.String("endpoint", ep.Name), zap.Error(err))
		}
		return Result{
			Endpoint:   ep,
			Status:     StatusDegraded,
			LatencyMs:  &latency,
			Message:    "malformed response body",
			ObservedAt: now,
		}
	}
	if !env.Success {
		return Result{
			Endpoint:   ep,
			Status:     StatusDegraded,
			LatencyMs:  &latency,
			Message:    "upstream reported success=false",
			ObservedAt: now,
		}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return Result{
			Endpoint:   ep,
			Status:     StatusDegraded,
			LatencyMs:  &latency,
			Message:    "missing data payload",
			ObservedAt: now,
		}
	}

	status := StatusHealthy
	message := "ok"
	if time.Duration(latency)*time.Millisecond > slow {
		// Slow but correct: the payload stays usable for resolution.
		status = StatusDegraded
		message = fmt.Sprintf("slow response: %dms", latency)
	}

	return Result{
		Endpoint:   ep,
		Status:     status,
		LatencyMs:  &latency,
		Message:    message,
		ObservedAt: now,
		Body:       env.Data,
	}
}
