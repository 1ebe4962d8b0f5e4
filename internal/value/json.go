package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// binaryKey marks a JSON object that encodes a binary leaf.
	binaryKey = "$binary"
	// literalKey wraps a map whose only field is binaryKey or literalKey, so
	// user data never reads back as an envelope.
	literalKey = "$map"
)

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.wire())
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out, err := fromWire(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// wire mirrors Any but keeps binary leaves distinguishable in JSON.
func (v Value) wire() any {
	switch v.kind {
	case KindBinary:
		p := v.bin
		if p == nil {
			p = []byte{}
		}
		return map[string][]byte{binaryKey: p}
	case KindArray:
		out := make([]any, len(v.items))
		for i, e := range v.items {
			out[i] = e.wire()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.props))
		for k, e := range v.props {
			out[k] = e.wire()
		}
		if reserved(v.props) {
			return map[string]any{literalKey: out}
		}
		return out
	}
	return v.Any()
}

// reserved reports whether a map would be mistaken for an envelope.
func reserved(fields map[string]Value) bool {
	if len(fields) != 1 {
		return false
	}
	_, bin := fields[binaryKey]
	_, lit := fields[literalKey]
	return bin || lit
}

// fromWire is FromAny for decoded JSON: it also unwraps binary and literal
// map envelopes.
func fromWire(x any) (Value, error) {
	switch t := x.(type) {
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := fromWire(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		if p, ok := binaryEnvelope(t); ok {
			return Binary(p), nil
		}
		if inner, ok := literalEnvelope(t); ok {
			t = inner
		}
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := fromWire(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			fields[k] = v
		}
		return Map(fields), nil
	}
	return FromAny(x)
}

func binaryEnvelope(m map[string]any) ([]byte, bool) {
	if len(m) != 1 {
		return nil, false
	}
	enc, ok := m[binaryKey].(string)
	if !ok {
		return nil, false
	}
	p, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return nil, false
	}
	return p, true
}

func literalEnvelope(m map[string]any) (map[string]any, bool) {
	if len(m) != 1 {
		return nil, false
	}
	inner, ok := m[literalKey].(map[string]any)
	return inner, ok
}
