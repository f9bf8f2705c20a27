package resolve

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// SourceDefault is the reserved source id tagged onto a ResolvedValue when
// every binding came up empty. Consumers can always tell a configured
// default apart from measured data.
const SourceDefault = "default"

// SourceSynthesized is the reserved source id for values derived from an
// aggregate rather than measured directly.
const SourceSynthesized = "synthesized"

// Extractor pulls one value out of a raw upstream payload. Implementations
// must be pure; returning Absent is the only failure mode.
type Extractor func(raw json.RawMessage) Value

// Binding is one candidate origin for a logical field.
type Binding struct {
	SourceID string
	Extract  Extractor
}

// Field is a named piece of dashboard state with an ordered fallback chain.
// Bindings are ranked by trust: the first one that yields a value wins.
type Field struct {
	Key      string
	Bindings []Binding
	Default  Value
}

// ResolvedValue carries the winning value together with the identity of
// the source that produced it.
type ResolvedValue struct {
	FieldKey    string    `json:"field"`
	Value       Value     `json:"value"`
	SourceID    string    `json:"source_id"`
	Synthesized bool      `json:"synthesized,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// Defaulted reports whether the value is the field's configured fallback
// rather than data from any source.
func (rv ResolvedValue) Defaulted() bool { return rv.SourceID == SourceDefault }

type Resolver struct {
	Logger *zap.Logger
}

// Resolve walks the field's bindings in priority order and returns the
// first non-absent extraction. Extractor panics are swallowed and count as
// Absent for that binding. Exhausting the chain yields the configured
// default. Identical inputs always resolve identically.
func (r *Resolver) Resolve(field Field, responses map[string]json.RawMessage) ResolvedValue {
	now := time.Now().UTC()
	for _, b := range field.Bindings {
		raw, ok := responses[b.SourceID]
		if !ok || len(raw) == 0 || b.Extract == nil {
			continue
		}
		v := r.extract(field.Key, b, raw)
		if v.IsAbsent() {
			continue
		}
		return ResolvedValue{
			FieldKey:   field.Key,
			Value:      v,
			SourceID:   b.SourceID,
			ResolvedAt: now,
		}
	}
	return ResolvedValue{
		FieldKey:   field.Key,
		Value:      field.Default,
		SourceID:   SourceDefault,
		ResolvedAt: now,
	}
}

// ResolveAll resolves every field against the same response batch.
func (r *Resolver) ResolveAll(fields []Field, responses map[string]json.RawMessage) map[string]ResolvedValue {
	out := make(map[string]ResolvedValue, len(fields))
	for _, f := range fields {
		out[f.Key] = r.Resolve(f, responses)
	}
	return out
}

func (r *Resolver) extract(fieldKey string, b Binding, raw json.RawMessage) (v Value) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.Logger != nil {
				r.Logger.Warn("extractor panicked, treating as absent",
					zap.String("field", fieldKey),
					zap.String("source", b.SourceID),
					zap.Any("panic", rec),
				)
			}
			v = Absent()
		}
	}()
	return b.Extract(raw)
}
