package config

import (
	"fmt"
	"math"
	"strings"
)

// weightSumEpsilon absorbs float accumulation noise when checking that
// strategy weights sum to 1.0.
const weightSumEpsilon = 1e-9

// Validate checks runtime configuration constraints. It fails fast so a
// misconfigured engine never starts polling.
func (c Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be > 0, got %s", c.Poll.Interval)
	}
	if c.Poll.SlowThreshold <= 0 {
		return fmt.Errorf("poll.slow_threshold must be > 0, got %s", c.Poll.SlowThreshold)
	}
	if c.Poll.ProbeTimeout <= 0 {
		return fmt.Errorf("poll.probe_timeout must be > 0, got %s", c.Poll.ProbeTimeout)
	}

	if len(c.Endpoints) == 0 {
		return fmt.Errorf("endpoints: at least one upstream endpoint is required")
	}
	seen := map[string]bool{}
	for i, ep := range c.Endpoints {
		name := strings.TrimSpace(ep.Name)
		if name == "" {
			return fmt.Errorf("endpoints[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("endpoints[%d]: duplicate name %q", i, name)
		}
		seen[name] = true
		if strings.TrimSpace(ep.URL) == "" {
			return fmt.Errorf("endpoints[%d] (%s): url is required", i, name)
		}
	}

	if c.Injected.TotalTrades != nil && *c.Injected.TotalTrades < 0 {
		return fmt.Errorf("injected.total_trades must be >= 0, got %d", *c.Injected.TotalTrades)
	}
	if c.Injected.SuccessRate != nil && (*c.Injected.SuccessRate < 0 || *c.Injected.SuccessRate > 1) {
		return fmt.Errorf("injected.success_rate must be within [0,1], got %f", *c.Injected.SuccessRate)
	}

	for i, ep := range c.Control.Endpoints {
		if strings.TrimSpace(ep.Name) == "" {
			return fmt.Errorf("control.endpoints[%d]: name is required", i)
		}
		if strings.TrimSpace(ep.URL) == "" {
			return fmt.Errorf("control.endpoints[%d] (%s): url is required", i, ep.Name)
		}
	}

	if len(c.Synthesis.Strategies) == 0 {
		return fmt.Errorf("synthesis.strategies: at least one strategy weight is required")
	}
	sum := 0.0
	for i, s := range c.Synthesis.Strategies {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("synthesis.strategies[%d]: name is required", i)
		}
		if s.Weight <= 0 {
			return fmt.Errorf("synthesis.strategies[%d] (%s): weight must be > 0, got %f", i, s.Name, s.Weight)
		}
		sum += s.Weight
	}
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("synthesis.strategies: weights must sum to 1.0, got %f", sum)
	}
	for name, ratio := range map[string]float64{
		"stop_loss":   c.Synthesis.Actions.StopLoss,
		"take_profit": c.Synthesis.Actions.TakeProfit,
		"rebalance":   c.Synthesis.Actions.Rebalance,
	} {
		if ratio < 0 || ratio > 1 {
			return fmt.Errorf("synthesis.actions.%s must be within [0,1], got %f", name, ratio)
		}
	}

	for i, r := range c.Consistency {
		if strings.TrimSpace(r.Metric) == "" {
			return fmt.Errorf("consistency[%d]: metric is required", i)
		}
		if strings.TrimSpace(r.FieldA) == "" || strings.TrimSpace(r.FieldB) == "" {
			return fmt.Errorf("consistency[%d] (%s): field_a and field_b are required", i, r.Metric)
		}
		if r.Tolerance < 0 {
			return fmt.Errorf("consistency[%d] (%s): tolerance must be >= 0, got %f", i, r.Metric, r.Tolerance)
		}
	}

	if c.Prefs.RecentSearchLimit < 0 {
		return fmt.Errorf("prefs.recent_search_limit must be >= 0, got %d", c.Prefs.RecentSearchLimit)
	}

	return nil
}
