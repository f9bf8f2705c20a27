package resolve

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// The helpers below build narrow, typed extractors over the opaque JSON
// payloads upstream endpoints return. A missing key, a null, or a value of
// the wrong type all map to Absent, never to an error.

func objectKey(raw json.RawMessage, key string) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	v, ok := obj[key]
	if !ok || len(v) == 0 || string(v) == "null" {
		return nil, false
	}
	return v, true
}

// BoolField extracts a top-level boolean key.
func BoolField(key string) Extractor {
	return func(raw json.RawMessage) Value {
		v, ok := objectKey(raw, key)
		if !ok {
			return Absent()
		}
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return Absent()
		}
		return BoolValue(b)
	}
}

// NumberField extracts a top-level numeric key. JSON numbers are decoded
// through json.Number so monetary values survive without float drift.
func NumberField(key string) Extractor {
	return func(raw json.RawMessage) Value {
		v, ok := objectKey(raw, key)
		if !ok {
			return Absent()
		}
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return Absent()
		}
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return Absent()
		}
		return NumberValue(d)
	}
}

// StringField extracts a top-level string key.
func StringField(key string) Extractor {
	return func(raw json.RawMessage) Value {
		v, ok := objectKey(raw, key)
		if !ok {
			return Absent()
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return Absent()
		}
		return StringValue(s)
	}
}
