package engine

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"tradewatch/internal/config"
	"tradewatch/internal/probe"
	"tradewatch/internal/resolve"
	"tradewatch/internal/synth"
)

// Source ids. Live endpoints use their configured name; the two below are
// reserved for the non-live rungs of the fallback chain.
const (
	SourceAutonomous = "autonomous"
	SourceSummary    = "summary"
	SourceInjected   = "injectedSnapshot"
)

// Logical field keys consumed by the dashboard.
const (
	FieldMarketOpen  = "isMarketOpen"
	FieldTotalTrades = "totalTrades"
	FieldDailyPnl    = "dailyPnl"
	FieldSuccessRate = "successRate"
)

// InjectedSnapshot is an externally supplied view of trading state, handed
// to the engine at construction. It ranks below live endpoints and above
// defaults in every fallback chain.
type InjectedSnapshot struct {
	MarketOpen  *bool
	TotalTrades *int64
	DailyPnl    *decimal.Decimal
	SuccessRate *decimal.Decimal
}

// InjectedFromConfig maps the optional injected block onto a snapshot.
// Returns nil when no field is set so the injected rung stays empty.
func InjectedFromConfig(cfg config.InjectedConfig) *InjectedSnapshot {
	if cfg.Empty() {
		return nil
	}
	snap := &InjectedSnapshot{
		MarketOpen:  cfg.MarketOpen,
		TotalTrades: cfg.TotalTrades,
	}
	if cfg.DailyPnl != nil {
		d := decimal.NewFromFloat(*cfg.DailyPnl)
		snap.DailyPnl = &d
	}
	if cfg.SuccessRate != nil {
		d := decimal.NewFromFloat(*cfg.SuccessRate)
		snap.SuccessRate = &d
	}
	return snap
}

// Raw renders the snapshot in the canonical key set the field bindings
// expect. Nil fields are omitted so they read as Absent.
func (s *InjectedSnapshot) Raw() json.RawMessage {
	if s == nil {
		return nil
	}
	obj := map[string]any{}
	if s.MarketOpen != nil {
		obj["market_open"] = *s.MarketOpen
	}
	if s.TotalTrades != nil {
		obj["total_trades"] = *s.TotalTrades
	}
	if s.DailyPnl != nil {
		obj["daily_pnl"] = *s.DailyPnl
	}
	if s.SuccessRate != nil {
		obj["success_rate"] = *s.SuccessRate
	}
	if len(obj) == 0 {
		return nil
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return raw
}

// BuildEndpoints maps endpoint configuration onto probe specs, applying
// the shared probe timeout where an endpoint does not set its own.
func BuildEndpoints(cfgs []config.EndpointConfig, poll config.PollConfig) []probe.Endpoint {
	eps := make([]probe.Endpoint, 0, len(cfgs))
	for _, c := range cfgs {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = poll.ProbeTimeout
		}
		eps = append(eps, probe.Endpoint{
			Name:     c.Name,
			URL:      c.URL,
			Critical: c.Critical,
			Timeout:  timeout,
		})
	}
	return eps
}

// DefaultFields is the table every cycle resolves. Adding a fallback
// source is a row change here, not new branching logic.
//
// The merged fields feed the dashboard; the per-source mirror fields exist
// only so consistency rules can compare what each upstream reported before
// fallback blending.
func DefaultFields() []resolve.Field {
	fields := []resolve.Field{
		{
			Key: FieldMarketOpen,
			Bindings: []resolve.Binding{
				{SourceID: SourceAutonomous, Extract: resolve.BoolField("market_open")},
				{SourceID: SourceSummary, Extract: resolve.BoolField("market_open")},
				{SourceID: SourceInjected, Extract: resolve.BoolField("market_open")},
			},
			// Closed is the safe assumption when nothing answers.
			Default: resolve.BoolValue(false),
		},
		{
			Key: FieldTotalTrades,
			Bindings: []resolve.Binding{
				{SourceID: SourceAutonomous, Extract: resolve.NumberField("trades_today")},
				{SourceID: SourceSummary, Extract: resolve.NumberField("total_trades")},
				{SourceID: SourceInjected, Extract: resolve.NumberField("total_trades")},
			},
			Default: resolve.NumberValue(decimal.Zero),
		},
		{
			Key: FieldDailyPnl,
			Bindings: []resolve.Binding{
				{SourceID: SourceAutonomous, Extract: resolve.NumberField("daily_pnl")},
				{SourceID: SourceSummary, Extract: resolve.NumberField("pnl_today")},
				{SourceID: SourceInjected, Extract: resolve.NumberField("daily_pnl")},
			},
			Default: resolve.NumberValue(decimal.Zero),
		},
		{
			Key: FieldSuccessRate,
			Bindings: []resolve.Binding{
				{SourceID: SourceAutonomous, Extract: resolve.NumberField("success_rate")},
				{SourceID: SourceSummary, Extract: resolve.NumberField("win_rate")},
				{SourceID: SourceInjected, Extract: resolve.NumberField("success_rate")},
			},
			Default: resolve.NumberValue(decimal.Zero),
		},
	}

	mirror := func(source, key string, ex resolve.Extractor) resolve.Field {
		return resolve.Field{
			Key:      source + "." + key,
			Bindings: []resolve.Binding{{SourceID: source, Extract: ex}},
			// Absent default: a missing mirror must skip its rule, not
			// masquerade as data.
			Default: resolve.Absent(),
		}
	}
	fields = append(fields,
		mirror(SourceAutonomous, FieldMarketOpen, resolve.BoolField("market_open")),
		mirror(SourceAutonomous, FieldTotalTrades, resolve.NumberField("trades_today")),
		mirror(SourceAutonomous, FieldDailyPnl, resolve.NumberField("daily_pnl")),
		mirror(SourceAutonomous, FieldSuccessRate, resolve.NumberField("success_rate")),
		mirror(SourceSummary, FieldMarketOpen, resolve.BoolField("market_open")),
		mirror(SourceSummary, FieldTotalTrades, resolve.NumberField("total_trades")),
		mirror(SourceSummary, FieldDailyPnl, resolve.NumberField("pnl_today")),
		mirror(SourceSummary, FieldSuccessRate, resolve.NumberField("win_rate")),
	)
	return fields
}

// detailedBreakdown pulls a measured per-strategy breakdown out of the
// summary payload when the upstream provides one. Returns nil when absent
// so the caller can fall back to synthesis.
func detailedBreakdown(responses map[string]json.RawMessage) *synth.Breakdown {
	raw, ok := responses[SourceSummary]
	if !ok {
		return nil
	}
	var parsed struct {
		Strategies []struct {
			Name   string          `json:"name"`
			Trades int64           `json:"trades"`
			Pnl    decimal.Decimal `json:"pnl"`
		} `json:"strategies"`
		AutoActions struct {
			StopLossesTriggered  int64 `json:"stop_losses_triggered"`
			TakeProfitsTriggered int64 `json:"take_profits_triggered"`
			Rebalances           int64 `json:"rebalances"`
		} `json:"auto_actions"`
		Wins   int64 `json:"wins"`
		Losses int64 `json:"losses"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}
	if len(parsed.Strategies) == 0 {
		return nil
	}
	out := &synth.Breakdown{
		Wins:   parsed.Wins,
		Losses: parsed.Losses,
		Actions: synth.AutoActions{
			StopLossesTriggered:  parsed.AutoActions.StopLossesTriggered,
			TakeProfitsTriggered: parsed.AutoActions.TakeProfitsTriggered,
			Rebalances:           parsed.AutoActions.Rebalances,
		},
	}
	for _, s := range parsed.Strategies {
		out.Strategies = append(out.Strategies, synth.StrategyStat{
			Name:   s.Name,
			Trades: s.Trades,
			Pnl:    s.Pnl,
		})
	}
	return out
}

// aggregateFromValues assembles the synthesis input from resolved fields.
// The second return is false when the trade total itself is a default:
// synthesizing from a fabricated aggregate would conflate "no data" with
// "fake data".
func aggregateFromValues(values map[string]resolve.ResolvedValue) (synth.Aggregate, bool) {
	trades, ok := values[FieldTotalTrades]
	if !ok || trades.Defaulted() || trades.Value.Kind != resolve.KindNumber {
		return synth.Aggregate{}, false
	}
	agg := synth.Aggregate{TotalTrades: trades.Value.Number.IntPart()}
	if pnl, ok := values[FieldDailyPnl]; ok && !pnl.Defaulted() && pnl.Value.Kind == resolve.KindNumber {
		agg.TotalPnl = pnl.Value.Number
	}
	if rate, ok := values[FieldSuccessRate]; ok && !rate.Defaulted() && rate.Value.Kind == resolve.KindNumber {
		agg.SuccessRate = rate.Value.Number
	}
	return agg, true
}
