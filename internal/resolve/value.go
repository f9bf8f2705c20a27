package resolve

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind tags the variant held by a Value.
type Kind string

const (
	KindAbsent Kind = "absent"
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
	KindString Kind = "string"
)

// Value is a tagged optional. Extractors return Absent instead of an error
// or a panic when the raw response does not carry the field; consumers can
// therefore tell "no data" apart from any real value, including false and
// zero.
type Value struct {
	Kind   Kind
	Bool   bool
	Number decimal.Decimal
	String string
}

func Absent() Value                       { return Value{Kind: KindAbsent} }
func BoolValue(b bool) Value              { return Value{Kind: KindBool, Bool: b} }
func NumberValue(d decimal.Decimal) Value { return Value{Kind: KindNumber, Number: d} }
func StringValue(s string) Value          { return Value{Kind: KindString, String: s} }

// NumberFromFloat is a convenience for extractor code paths that decode
// JSON numbers as float64.
func NumberFromFloat(f float64) Value {
	return NumberValue(decimal.NewFromFloat(f))
}

func (v Value) IsAbsent() bool { return v.Kind == KindAbsent || v.Kind == "" }

// Equal reports strict equality between two values of the same kind.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == o.Bool
	case KindNumber:
		return v.Number.Equal(o.Number)
	case KindString:
		return v.String == o.String
	default:
		return true
	}
}

func (v Value) GoString() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("Bool(%v)", v.Bool)
	case KindNumber:
		return fmt.Sprintf("Number(%s)", v.Number.String())
	case KindString:
		return fmt.Sprintf("String(%q)", v.String)
	default:
		return "Absent"
	}
}

// MarshalJSON flattens the variant so dashboard payloads carry the plain
// value plus a null for absent.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		return json.Marshal(v.Number)
	case KindString:
		return json.Marshal(v.String)
	default:
		return []byte("null"), nil
	}
}
