package probe

import (
	"encoding/json"
	"time"
)

// Status classifies one probe outcome.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Endpoint is the static description of one upstream status API.
// Immutable after startup.
type Endpoint struct {
	Name     string        `json:"name"`
	URL      string        `json:"url"`
	Critical bool          `json:"critical"`
	Timeout  time.Duration `json:"timeout"`
}

// Result is the outcome of a single timed request to one endpoint.
// Built fresh every cycle and never mutated.
type Result struct {
	Endpoint   Endpoint        `json:"endpoint"`
	Status     Status          `json:"status"`
	LatencyMs  *int64          `json:"latency_ms"`
	Message    string          `json:"message"`
	ObservedAt time.Time       `json:"observed_at"`
	Body       json.RawMessage `json:"-"`
}

// Usable reports whether the probe yielded a data payload the resolver
// may extract from.
func (r Result) Usable() bool {
	return len(r.Body) > 0
}

// envelope is the wire shape shared by all upstream status endpoints.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}
