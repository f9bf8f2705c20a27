package synth

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradewatch/internal/config"
)

// Synthesizer estimates a detailed breakdown from a coarse aggregate when
// no source reports per-strategy figures. Everything it emits is tagged
// synthesized so the dashboard can render estimates distinctly from
// measured data. Weights and ratios come from configuration and are
// validated at load time.
type Synthesizer struct {
	Weights []StrategyWeight
	Ratios  ActionRatios
}

type StrategyWeight struct {
	Name   string
	Weight decimal.Decimal
}

type ActionRatios struct {
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	Rebalance  decimal.Decimal
}

// Aggregate is the coarse signal synthesis expands from.
type Aggregate struct {
	TotalTrades int64
	TotalPnl    decimal.Decimal
	SuccessRate decimal.Decimal // fraction in [0,1]
}

type StrategyStat struct {
	Name   string          `json:"name"`
	Trades int64           `json:"trades"`
	Pnl    decimal.Decimal `json:"pnl"`
}

type AutoActions struct {
	StopLossesTriggered  int64 `json:"stop_losses_triggered"`
	TakeProfitsTriggered int64 `json:"take_profits_triggered"`
	Rebalances           int64 `json:"rebalances"`
}

type Breakdown struct {
	Strategies  []StrategyStat `json:"strategies"`
	Actions     AutoActions    `json:"auto_actions"`
	Wins        int64          `json:"wins"`
	Losses      int64          `json:"losses"`
	Synthesized bool           `json:"synthesized"`
}

func NewFromConfig(cfg config.SynthesisConfig) *Synthesizer {
	s := &Synthesizer{
		Ratios: ActionRatios{
			StopLoss:   decimal.NewFromFloat(cfg.Actions.StopLoss),
			TakeProfit: decimal.NewFromFloat(cfg.Actions.TakeProfit),
			Rebalance:  decimal.NewFromFloat(cfg.Actions.Rebalance),
		},
	}
	for _, w := range cfg.Strategies {
		s.Weights = append(s.Weights, StrategyWeight{
			Name:   w.Name,
			Weight: decimal.NewFromFloat(w.Weight),
		})
	}
	return s
}

// Synthesize splits the aggregate proportionally across the configured
// strategy weights. Trade counts conserve the aggregate exactly via
// largest-remainder rounding; the P&L split assigns the rounding residue
// to the last strategy so the column sums match the aggregate.
func (s *Synthesizer) Synthesize(agg Aggregate) Breakdown {
	out := Breakdown{Synthesized: true}
	if len(s.Weights) == 0 {
		return out
	}
	if agg.TotalTrades < 0 {
		agg.TotalTrades = 0
	}

	total := decimal.NewFromInt(agg.TotalTrades)

	type share struct {
		idx      int
		floor    int64
		fraction decimal.Decimal
	}
	shares := make([]share, len(s.Weights))
	var assigned int64
	for i, w := range s.Weights {
		exact := total.Mul(w.Weight)
		fl := exact.Floor()
		shares[i] = share{idx: i, floor: fl.IntPart(), fraction: exact.Sub(fl)}
		assigned += fl.IntPart()
	}

	// Hand out the remainder one trade at a time, largest fraction first.
	// Ties break by declaration order so the split is deterministic.
	remainder := agg.TotalTrades - assigned
	order := make([]share, len(shares))
	copy(order, shares)
	sort.SliceStable(order, func(a, b int) bool {
		return order[a].fraction.GreaterThan(order[b].fraction)
	})
	extra := make([]int64, len(shares))
	for i := int64(0); i < remainder; i++ {
		extra[order[int(i)%len(order)].idx]++
	}

	pnlAssigned := decimal.Zero
	for i, w := range s.Weights {
		trades := shares[i].floor + extra[i]
		var pnl decimal.Decimal
		if i == len(s.Weights)-1 {
			pnl = agg.TotalPnl.Sub(pnlAssigned)
		} else {
			pnl = agg.TotalPnl.Mul(w.Weight).Round(2)
			pnlAssigned = pnlAssigned.Add(pnl)
		}
		out.Strategies = append(out.Strategies, StrategyStat{
			Name:   w.Name,
			Trades: trades,
			Pnl:    pnl,
		})
	}

	rate := agg.SuccessRate
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		rate = decimal.NewFromInt(1)
	}
	out.Wins = total.Mul(rate).Round(0).IntPart()
	if out.Wins > agg.TotalTrades {
		out.Wins = agg.TotalTrades
	}
	out.Losses = agg.TotalTrades - out.Wins

	out.Actions = AutoActions{
		StopLossesTriggered:  total.Mul(s.Ratios.StopLoss).Round(0).IntPart(),
		TakeProfitsTriggered: total.Mul(s.Ratios.TakeProfit).Round(0).IntPart(),
		Rebalances:           total.Mul(s.Ratios.Rebalance).Round(0).IntPart(),
	}
	return out
}
