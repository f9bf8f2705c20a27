package consistency

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradewatch/internal/config"
	"tradewatch/internal/resolve"
)

// Verdict states whether two sources agree on one metric.
type Verdict string

const (
	VerdictConsistent   Verdict = "consistent"
	VerdictInconsistent Verdict = "inconsistent"
)

// Rule declares one cross-source comparison. Rules are independent of each
// other; evaluation order never changes the outcome.
type Rule struct {
	Metric    string          `json:"metric"`
	FieldA    string          `json:"field_a"`
	FieldB    string          `json:"field_b"`
	Tolerance decimal.Decimal `json:"tolerance"`
	Relative  bool            `json:"relative"`
	Exact     bool            `json:"exact"`
	Critical  bool            `json:"critical"`
}

// Finding is the outcome of one rule against one resolved batch.
type Finding struct {
	Rule      Rule            `json:"rule"`
	ValueA    resolve.Value   `json:"value_a"`
	ValueB    resolve.Value   `json:"value_b"`
	Delta     decimal.Decimal `json:"delta"`
	Verdict   Verdict         `json:"verdict"`
	CheckedAt time.Time       `json:"checked_at"`
}

type Checker struct {
	Rules  []Rule
	Logger *zap.Logger
}

func NewFromConfig(rules []config.RuleConfig, logger *zap.Logger) *Checker {
	c := &Checker{Logger: logger}
	for _, r := range rules {
		c.Rules = append(c.Rules, Rule{
			Metric:    r.Metric,
			FieldA:    r.FieldA,
			FieldB:    r.FieldB,
			Tolerance: decimal.NewFromFloat(r.Tolerance),
			Relative:  r.Relative,
			Exact:     r.Exact,
			Critical:  r.Critical,
		})
	}
	return c
}

// Check evaluates a single rule. The second return is false when the rule
// was skipped: either side missing, defaulted, or synthesized means there
// is no real data to compare, and a skipped rule must not read as drift.
func (c *Checker) Check(rule Rule, values map[string]resolve.ResolvedValue) (Finding, bool) {
	a, okA := values[rule.FieldA]
	b, okB := values[rule.FieldB]
	if !okA || !okB {
		return Finding{}, false
	}
	if a.Value.IsAbsent() || b.Value.IsAbsent() {
		return Finding{}, false
	}
	if a.Defaulted() || b.Defaulted() || a.Synthesized || b.Synthesized {
		return Finding{}, false
	}

	f := Finding{
		Rule:      rule,
		ValueA:    a.Value,
		ValueB:    b.Value,
		CheckedAt: time.Now().UTC(),
	}

	if rule.Exact || a.Value.Kind != resolve.KindNumber || b.Value.Kind != resolve.KindNumber {
		if a.Value.Equal(b.Value) {
			f.Verdict = VerdictConsistent
		} else {
			f.Verdict = VerdictInconsistent
		}
		return f, true
	}

	// |A-B| is symmetric, so swapping the sources never flips the verdict.
	f.Delta = a.Value.Number.Sub(b.Value.Number).Abs()
	tolerance := rule.Tolerance
	if rule.Relative {
		scale := decimal.Max(a.Value.Number.Abs(), b.Value.Number.Abs())
		tolerance = tolerance.Mul(scale)
	}
	if f.Delta.GreaterThan(tolerance) {
		f.Verdict = VerdictInconsistent
	} else {
		f.Verdict = VerdictConsistent
	}
	return f, true
}

// CheckAll runs every rule against the batch, dropping skipped rules from
// the findings.
func (c *Checker) CheckAll(values map[string]resolve.ResolvedValue) []Finding {
	findings := make([]Finding, 0, len(c.Rules))
	for _, rule := range c.Rules {
		f, ok := c.Check(rule, values)
		if !ok {
			continue
		}
		if f.Verdict == VerdictInconsistent && c.Logger != nil {
			c.Logger.Warn("consistency drift detected",
				zap.String("metric", rule.Metric),
				zap.String("delta", f.Delta.String()),
				zap.Bool("critical", rule.Critical),
			)
		}
		findings = append(findings, f)
	}
	return findings
}
