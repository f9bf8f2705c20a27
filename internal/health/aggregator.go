package health

import (
	"fmt"
	"time"

	"tradewatch/internal/consistency"
	"tradewatch/internal/probe"
)

// Snapshot is one cycle's complete, immutable health summary. It is always
// replaced whole, never patched, so concurrent readers see a consistent
// view.
type Snapshot struct {
	OverallHealthPercent float64               `json:"overall_health_percent"`
	ProbeResults         []probe.Result        `json:"probe_results"`
	ConsistencyFindings  []consistency.Finding `json:"consistency_findings"`
	CriticalFailureCount int                   `json:"critical_failure_count"`
	AvgLatencyMs         *float64              `json:"avg_latency_ms"`
	Findings             []string              `json:"findings"`
	GeneratedAt          time.Time             `json:"generated_at"`
}

// Aggregate folds one cycle's probe and consistency results into a health
// snapshot. The percentage is a function of probes only: the fraction of
// endpoints that were healthy. Consistency drift shows up in the findings
// list, never in the score, so the score keeps one stable meaning. No
// input is dropped regardless of status.
func Aggregate(probes []probe.Result, findings []consistency.Finding) Snapshot {
	snap := Snapshot{
		ProbeResults:        probes,
		ConsistencyFindings: findings,
		GeneratedAt:         time.Now().UTC(),
	}

	healthy := 0
	latencySum := int64(0)
	latencyCount := 0
	for _, p := range probes {
		switch p.Status {
		case probe.StatusHealthy:
			healthy++
		case probe.StatusFailed:
			if p.Endpoint.Critical {
				snap.CriticalFailureCount++
			}
		}
		if p.LatencyMs != nil {
			latencySum += *p.LatencyMs
			latencyCount++
		}
		if p.Status != probe.StatusHealthy {
			snap.Findings = append(snap.Findings,
				fmt.Sprintf("endpoint %s is %s: %s", p.Endpoint.Name, p.Status, p.Message))
		}
	}

	if len(probes) > 0 {
		snap.OverallHealthPercent = 100 * float64(healthy) / float64(len(probes))
	}
	if latencyCount > 0 {
		avg := float64(latencySum) / float64(latencyCount)
		snap.AvgLatencyMs = &avg
	}

	for _, f := range findings {
		if f.Verdict != consistency.VerdictInconsistent {
			continue
		}
		note := fmt.Sprintf("sources disagree on %s: %s vs %s (delta %s)",
			f.Rule.Metric, f.ValueA.GoString(), f.ValueB.GoString(), f.Delta.String())
		if f.Rule.Critical {
			note = "ALERT: " + note
		}
		snap.Findings = append(snap.Findings, note)
	}

	return snap
}
