package engine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"tradewatch/internal/consistency"
	"tradewatch/internal/health"
	"tradewatch/internal/probe"
	"tradewatch/internal/resolve"
	"tradewatch/internal/synth"
)

// State of the poll scheduler.
type State string

const (
	StateIdle    State = "idle"
	StatePolling State = "polling"
	StateStopped State = "stopped"
)

const (
	stateIdle int32 = iota
	statePolling
	stateStopped
)

// Snapshot is the complete dashboard state one cycle produces. It is
// immutable: each cycle publishes a fresh one and consumers only ever see
// whole snapshots.
type Snapshot struct {
	Health      health.Snapshot                  `json:"health"`
	Values      map[string]resolve.ResolvedValue `json:"values"`
	Strategies  *synth.Breakdown                 `json:"strategies,omitempty"`
	DataLimited bool                             `json:"data_limited"`
	Cycle       uint64                           `json:"cycle"`
	GeneratedAt time.Time                        `json:"generated_at"`
}

// Options wires an Engine. Endpoints, fields, and intervals are read-only
// after construction.
type Options struct {
	Endpoints []probe.Endpoint
	Fields    []resolve.Field
	Injected  *InjectedSnapshot
	Interval  time.Duration
	SubBuf    int

	Prober  *probe.Prober
	Synth   *synth.Synthesizer
	Checker *consistency.Checker
	Logger  *zap.Logger
}

// Engine owns the repeating poll cycle: fan out probes, resolve each
// logical field through its fallback chain, synthesize the breakdown when
// only an aggregate is available, cross-check sources, score health, and
// publish one immutable snapshot.
type Engine struct {
	prober   *probe.Prober
	resolver *resolve.Resolver
	synth    *synth.Synthesizer
	checker  *consistency.Checker
	logger   *zap.Logger

	endpoints []probe.Endpoint
	fields    []resolve.Field
	injected  json.RawMessage
	interval  time.Duration
	subBuf    int

	refresh chan struct{}
	state   atomic.Int32
	cycles  atomic.Uint64

	mu     sync.RWMutex
	latest *Snapshot
	subs   map[chan Snapshot]struct{}
}

func New(opts Options) *Engine {
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	subBuf := opts.SubBuf
	if subBuf <= 0 {
		subBuf = 8
	}
	fields := opts.Fields
	if fields == nil {
		fields = DefaultFields()
	}
	return &Engine{
		prober:    opts.Prober,
		resolver:  &resolve.Resolver{Logger: opts.Logger},
		synth:     opts.Synth,
		checker:   opts.Checker,
		logger:    opts.Logger,
		endpoints: opts.Endpoints,
		fields:    fields,
		injected:  opts.Injected.Raw(),
		interval:  interval,
		subBuf:    subBuf,
		refresh:   make(chan struct{}, 1),
		subs:      map[chan Snapshot]struct{}{},
	}
}

// Run drives the Idle -> Polling -> Idle loop until ctx is cancelled,
// which is the only route into the terminal Stopped state.
func (e *Engine) Run(ctx context.Context) error {
	if e == nil {
		return nil
	}

	// First cycle immediately so the dashboard has data without waiting a
	// full interval.
	e.runCycle(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.teardown()
			return ctx.Err()
		case <-ticker.C:
			e.runCycle(ctx)
		case <-e.refresh:
			e.runCycle(ctx)
		}
	}
}

// RefreshNow requests an out-of-band cycle. Requests landing while a cycle
// is in flight coalesce into at most one queued re-trigger.
func (e *Engine) RefreshNow() {
	if e == nil {
		return
	}
	select {
	case e.refresh <- struct{}{}:
	default:
	}
}

// Latest returns the last completed cycle's snapshot, or nil before the
// first cycle finishes.
func (e *Engine) Latest() *Snapshot {
	if e == nil {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// Ready reports whether at least one cycle has been published.
func (e *Engine) Ready() bool {
	return e.Latest() != nil
}

// State reports the scheduler state.
func (e *Engine) State() State {
	switch e.state.Load() {
	case statePolling:
		return StatePolling
	case stateStopped:
		return StateStopped
	default:
		return StateIdle
	}
}

// Subscribe registers a snapshot feed. Slow consumers miss snapshots
// rather than blocking the publisher.
func (e *Engine) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, e.subBuf)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (e *Engine) Unsubscribe(ch chan Snapshot) {
	e.mu.Lock()
	_, ok := e.subs[ch]
	if ok {
		delete(e.subs, ch)
	}
	e.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (e *Engine) teardown() {
	e.state.Store(stateStopped)
	e.mu.Lock()
	subs := e.subs
	e.subs = map[chan Snapshot]struct{}{}
	e.mu.Unlock()
	for ch := range subs {
		close(ch)
	}
	if e.logger != nil {
		e.logger.Info("poll scheduler stopped", zap.Uint64("cycles", e.cycles.Load()))
	}
}

// runCycle executes one full poll cycle. Probes run concurrently and the
// cycle waits for the whole batch to settle before any resolution step:
// partial batches are never resolved, and a broken endpoint surfaces as a
// Failed result instead of blocking or crashing the cycle.
func (e *Engine) runCycle(ctx context.Context) {
	if !e.state.CompareAndSwap(stateIdle, statePolling) {
		return
	}
	defer e.state.CompareAndSwap(statePolling, stateIdle)

	start := time.Now()
	results := make([]probe.Result, len(e.endpoints))
	var wg sync.WaitGroup
	for i, ep := range e.endpoints {
		wg.Add(1)
		go func(idx int, ep probe.Endpoint) {
			defer wg.Done()
			results[idx] = e.prober.Probe(ctx, ep)
		}(i, ep)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Teardown happened mid-cycle: late results are discarded, no
		// snapshot is published.
		if e.logger != nil {
			e.logger.Debug("cycle results discarded after teardown")
		}
		return
	}

	responses := make(map[string]json.RawMessage, len(results)+1)
	for _, r := range results {
		if r.Usable() {
			responses[r.Endpoint.Name] = r.Body
		}
	}
	if len(e.injected) > 0 {
		responses[SourceInjected] = e.injected
	}

	values := e.resolver.ResolveAll(e.fields, responses)

	strategies := detailedBreakdown(responses)
	if strategies == nil && e.synth != nil {
		if agg, ok := aggregateFromValues(values); ok {
			b := e.synth.Synthesize(agg)
			strategies = &b
		}
	}

	var findings []consistency.Finding
	if e.checker != nil {
		findings = e.checker.CheckAll(values)
	}

	snap := Snapshot{
		Health:      health.Aggregate(results, findings),
		Values:      values,
		Strategies:  strategies,
		Cycle:       e.cycles.Add(1),
		GeneratedAt: time.Now().UTC(),
	}
	for _, key := range []string{FieldMarketOpen, FieldTotalTrades, FieldDailyPnl, FieldSuccessRate} {
		if rv, ok := values[key]; ok && rv.Defaulted() {
			snap.DataLimited = true
			break
		}
	}

	e.publish(ctx, snap)

	if e.logger != nil {
		e.logger.Info("poll cycle complete",
			zap.Uint64("cycle", snap.Cycle),
			zap.Duration("took", time.Since(start)),
			zap.Float64("health_percent", snap.Health.OverallHealthPercent),
			zap.Int("critical_failures", snap.Health.CriticalFailureCount),
			zap.Bool("data_limited", snap.DataLimited),
		)
	}
}

func (e *Engine) publish(ctx context.Context, snap Snapshot) {
	if ctx.Err() != nil {
		return
	}
	e.mu.Lock()
	e.latest = &snap
	for ch := range e.subs {
		select {
		case ch <- snap:
		default:
			// Drop for slow subscribers; the publisher must not block.
		}
	}
	e.mu.Unlock()
}
